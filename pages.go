package recordops

// Pages describes the offset window of a query result. Next and Previous are
// offsets, not page numbers.
type Pages struct {
	Count    int `json:"count"`
	Number   int `json:"number"`
	Next     int `json:"next"`
	Previous int `json:"previous"`
}

// ComputePages derives the page window for total matches, offset from and
// page size limit. A non-positive limit yields zero pages. Next and Previous
// stay within [0, Count*limit], also when from is past the end.
func ComputePages(total, from, limit int) Pages {
	if limit <= 0 {
		return Pages{}
	}
	count := (total + limit - 1) / limit
	if total <= 0 {
		count = 0
	}
	number := from / limit
	return Pages{
		Count:    count,
		Number:   number,
		Next:     min(number+1, count) * limit,
		Previous: min(max(number-1, 0), count) * limit,
	}
}

// HasNext reports whether a page follows the current one.
func (p Pages) HasNext() bool { return p.Number+1 < p.Count }

// HasPrevious reports whether a page precedes the current one.
func (p Pages) HasPrevious() bool { return p.Number > 0 }
