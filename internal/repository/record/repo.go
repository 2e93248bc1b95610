package record

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain"
	"github.com/kailas-cloud/recordops/internal/domain/batch"
	domrec "github.com/kailas-cloud/recordops/internal/domain/record"
	"github.com/kailas-cloud/recordops/internal/domain/search/request"
)

// store is the consumer interface for record operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.Query) (*db.SearchResult, error)
	Write(ctx context.Context, index string, action batch.Action, docs []db.Document) (int, error)
	Delete(ctx context.Context, index string, ids []string) (int, error)
}

// Target addresses the records of one collection.
type Target struct {
	Index   string
	IDField string
	// Nesting packs top-level fields into their containers before writes.
	Nesting domrec.Nesting
	// Extra is merged over the request body by JSON-body backends.
	Extra map[string]any
}

func (t Target) idField() string {
	if t.IDField == "" {
		return domrec.DefaultIDField
	}
	return t.IDField
}

// Result is a page of stored records.
type Result struct {
	Total   int
	Records []domrec.Record
}

// Repo translates record queries and mutations into store calls.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Query runs q against t.Index and decodes every hit into a record in
// storage shape.
func (r *Repo) Query(ctx context.Context, t Target, q request.Query) (*Result, error) {
	dq := &db.Query{
		Index:   t.Index,
		IDs:     q.IDs(),
		Filters: q.Filters(),
		Offset:  q.Offset(),
		Limit:   q.Limit(),
		Fields:  sourceFields(t.Nesting, q.Fields()),
		Extra:   t.Extra,
	}
	for _, s := range q.Sort() {
		dq.Sort = append(dq.Sort, db.SortField{Field: s.Field, Desc: s.Order == request.Desc})
	}

	sr, err := r.store.Search(ctx, dq)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.Index, err)
	}

	records := make([]domrec.Record, 0, len(sr.Hits))
	for _, h := range sr.Hits {
		rec, err := decodeHit(h, t.idField())
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", t.Index, err)
		}
		records = append(records, rec)
	}
	return &Result{Total: sr.Total, Records: records}, nil
}

// Mutate applies action to t.Index. Creates and updates pack each record
// and require its id; removes only use ids. Total is the number of stored
// documents affected.
func (r *Repo) Mutate(
	ctx context.Context, t Target, action batch.Action, records []domrec.Record, ids []string,
) (*Result, error) {
	switch action {
	case batch.ActionCreate, batch.ActionUpdate:
		return r.write(ctx, t, action, records)
	case batch.ActionRemove:
		n, err := r.store.Delete(ctx, t.Index, ids)
		if err != nil {
			return nil, fmt.Errorf("remove from %s: %w", t.Index, err)
		}
		return &Result{Total: n}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidQuery, action)
	}
}

func (r *Repo) write(ctx context.Context, t Target, action batch.Action, records []domrec.Record) (*Result, error) {
	docs := make([]db.Document, 0, len(records))
	packed := make([]domrec.Record, 0, len(records))
	for i, rec := range records {
		id, ok := domrec.ID(rec, t.idField())
		if !ok {
			return nil, &domain.ValidationError{
				Fields: []domain.FieldError{{Field: t.idField(), Rule: "required"}},
				Err:    fmt.Errorf("record %d has no id", i),
			}
		}
		p := domrec.Pack(t.Nesting, rec)
		src, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", id, err)
		}
		docs = append(docs, db.Document{ID: id, Source: src})
		packed = append(packed, p)
	}

	n, err := r.store.Write(ctx, t.Index, action, docs)
	if err != nil {
		return nil, fmt.Errorf("%s in %s: %w", action, t.Index, err)
	}
	return &Result{Total: n, Records: packed}, nil
}

// sourceFields maps projected record fields to their stored paths. A nested
// field is read through its whole container, which may hold a JSON string.
func sourceFields(n domrec.Nesting, fields []string) []string {
	if len(fields) == 0 {
		return fields
	}
	containers := make(map[string]string, len(n))
	for _, f := range n {
		containers[f.Field] = f.ContainerKey()
	}
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if c, ok := containers[f]; ok {
			f = c
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// decodeHit decodes a stored document. Hits whose source lacks the id field
// get it from the document id.
func decodeHit(h db.Hit, idField string) (domrec.Record, error) {
	rec := domrec.Record{}
	if len(h.Source) > 0 {
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", h.ID, err)
		}
	}
	if _, ok := rec[idField]; !ok && h.ID != "" {
		rec[idField] = h.ID
	}
	return rec, nil
}
