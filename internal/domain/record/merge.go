package record

// Merge returns base overlaid with patch. Nested objects merge recursively,
// every other patch value (lists and nulls included) replaces the base value.
// Neither input is mutated.
func Merge(base, patch Record) Record {
	out := Clone(base)
	for k, pv := range patch {
		pm, pIsObj := pv.(map[string]any)
		bm, bIsObj := out[k].(map[string]any)
		if pIsObj && bIsObj {
			out[k] = Merge(bm, pm)
			continue
		}
		out[k] = cloneValue(pv)
	}
	return out
}

// KeyBy indexes records by the string id stored under field. Records without
// an id are skipped; on duplicates the last record wins.
func KeyBy(records []Record, field string) map[string]Record {
	out := make(map[string]Record, len(records))
	for _, r := range records {
		if id, ok := ID(r, field); ok {
			out[id] = r
		}
	}
	return out
}

// Project keeps only the listed top-level fields. A nil or empty list keeps
// everything.
func Project(r Record, fields []string) Record {
	if len(fields) == 0 {
		return r
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}
