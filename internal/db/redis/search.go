package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain/search/filter"
)

// Search returns documents by id (JSON.GET per key) or through FT.SEARCH
// with the filter expression rendered as a query string.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	if len(q.IDs) > 0 {
		hits, err := s.getDocs(ctx, q.Index, q.IDs)
		if err != nil {
			return nil, err
		}
		if err := project(hits, q.Fields); err != nil {
			return nil, err
		}
		return &db.SearchResult{Total: len(hits), Hits: hits}, nil
	}

	queryStr, err := buildFilter(q.Filters)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	args := []string{q.Index, queryStr}
	if len(q.Sort) > 0 {
		order := "ASC"
		if q.Sort[0].Desc {
			order = "DESC"
		}
		args = append(args, "SORTBY", fieldAlias(q.Sort[0].Field), order)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args,
		"RETURN", "1", "$",
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseSearchResult(q.Index, raw)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	if err := project(res.Hits, q.Fields); err != nil {
		return nil, err
	}
	return res, nil
}

// parseSearchResult reads the RESP2 reply [total, key1, ["$", doc1], ...].
func parseSearchResult(index string, raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	hits := make([]db.Hit, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].ToString()
			if name != "$" {
				continue
			}
			value, err := fields[j+1].ToString()
			if err != nil {
				break
			}
			src, err := unwrapDoc(value)
			if err != nil {
				return nil, fmt.Errorf("document %s: %w", key, err)
			}
			hits = append(hits, db.Hit{ID: docID(index, key), Source: src})
			break
		}
	}

	return &db.SearchResult{Total: int(total), Hits: hits}, nil
}

// project keeps only the listed top-level fields of each document.
func project(hits []db.Hit, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	for i := range hits {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(hits[i].Source, &doc); err != nil {
			return &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %w", db.ErrMalformedResponse, err)}
		}
		kept := make(map[string]json.RawMessage, len(fields))
		for _, f := range fields {
			if v, ok := doc[f]; ok {
				kept[f] = v
			}
		}
		src, err := json.Marshal(kept)
		if err != nil {
			return &db.Error{Op: db.OpSearch, Err: err}
		}
		hits[i].Source = src
	}
	return nil
}

// --- Filter building ---

// buildFilter translates filter.Expression into an FT.SEARCH query string.
// The empty expression matches every document.
func buildFilter(expr filter.Expression) (string, error) {
	if expr.IsEmpty() {
		return "*", nil
	}

	var parts []string

	for _, cond := range expr.Must() {
		c, err := buildCondition(cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, c)
	}

	should, err := buildShouldGroup(expr.Should())
	if err != nil {
		return "", err
	}
	if should != "" {
		parts = append(parts, should)
	}

	for _, cond := range expr.MustNot() {
		c, err := buildCondition(cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, "-"+c)
	}

	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, " "), nil
}

func buildCondition(cond filter.Condition) (string, error) {
	switch cond.Kind() {
	case filter.KindTerms:
		return buildTagFilter(cond.Field(), cond.Values()), nil
	case filter.KindExists:
		return fmt.Sprintf("(-ismissing(@%s))", fieldAlias(cond.Field())), nil
	case filter.KindRange:
		return buildNumericFilter(cond.Field(), cond.Range())
	case filter.KindSearch:
		return buildTextFilter(cond.Fields(), cond.Text()), nil
	default:
		return "", fmt.Errorf("%w: condition kind %s", db.ErrUnsupportedFilter, cond.Kind())
	}
}

func buildShouldGroup(conditions []filter.Condition) (string, error) {
	if len(conditions) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		c, err := buildCondition(cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, c)
	}
	return "(" + strings.Join(parts, " | ") + ")", nil
}

func buildTagFilter(field string, values []any) string {
	escaped := make([]string, 0, len(values))
	for _, v := range values {
		escaped = append(escaped, tagEscaper.Replace(fmt.Sprint(v)))
	}
	return fmt.Sprintf("@%s:{%s}", fieldAlias(field), strings.Join(escaped, " | "))
}

func buildNumericFilter(field string, r filter.Range) (string, error) {
	minBound := "-inf"
	maxBound := "+inf"

	bound := func(v any, exclusive bool) (string, error) {
		f, err := toFloat(v)
		if err != nil {
			return "", fmt.Errorf("%w: range on %q: %w", db.ErrUnsupportedFilter, field, err)
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if exclusive {
			s = "(" + s
		}
		return s, nil
	}

	var err error
	if r.GT != nil {
		minBound, err = bound(r.GT, true)
	} else if r.GTE != nil {
		minBound, err = bound(r.GTE, false)
	}
	if err != nil {
		return "", err
	}
	if r.LT != nil {
		maxBound, err = bound(r.LT, true)
	} else if r.LTE != nil {
		maxBound, err = bound(r.LTE, false)
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("@%s:[%s %s]", fieldAlias(field), minBound, maxBound), nil
}

func buildTextFilter(fields []string, text string) string {
	term := "*" + queryEscaper.Replace(text) + "*"
	if len(fields) == 0 {
		return "(" + term + ")"
	}
	aliases := make([]string, len(fields))
	for i, f := range fields {
		aliases[i] = fieldAlias(f)
	}
	return fmt.Sprintf("@%s:(%s)", strings.Join(aliases, "|"), term)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, errors.New("bound is not numeric")
	}
}

// fieldAlias maps a dotted record path to its index attribute name.
func fieldAlias(path string) string {
	return strings.ReplaceAll(path, ".", "_")
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	` `, `\ `,
)
