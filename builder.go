package recordops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/recordops/internal/domain/record"
)

// Builder runs queries and saves against a Backend and parses the stored
// records with a Model. In is the type callers save, Out the type queries
// return. A Builder keeps no state between calls and is safe for concurrent
// use.
type Builder[In, Out any] struct {
	backend Backend
	model   Model[Out]
	cfg     builderConfig
	obs     *observer
}

// New creates a Builder.
func New[In, Out any](backend Backend, model Model[Out], opts ...Option) (*Builder[In, Out], error) {
	if backend == nil {
		return nil, errors.New("recordops: backend is required")
	}
	if model == nil {
		return nil, errors.New("recordops: model is required")
	}

	cfg := defaultBuilderConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.defaultLimit > cfg.maxLimit {
		cfg.defaultLimit = cfg.maxLimit
	}

	obs, err := newObserver(cfg.collection, cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Builder[In, Out]{backend: backend, model: model, cfg: cfg, obs: obs}, nil
}

// Page is one query result window.
type Page[Out any] struct {
	// Total counts every match, not only this window.
	Total int
	// Raw holds the records as stored.
	Raw []Record
	// Parsed holds one outcome per raw record, in order.
	Parsed []Parsed[Out]
	// Records holds the records that parsed.
	Records []Out
	Pages   Pages

	params QueryParams
	run    func(ctx context.Context, params QueryParams) (*Page[Out], error)
}

// Params returns the normalized parameters that produced the page.
func (p *Page[Out]) Params() QueryParams { return p.params }

// Invalid returns the outcomes of the records that failed to parse.
func (p *Page[Out]) Invalid() []Parsed[Out] {
	var out []Parsed[Out]
	for _, pr := range p.Parsed {
		if !pr.Success {
			out = append(out, pr)
		}
	}
	return out
}

// Next runs the same query at offset Pages.Next.
func (p *Page[Out]) Next(ctx context.Context) (*Page[Out], error) {
	return p.run(ctx, p.params.withPagination(p.Pages.Next, p.params.limit()))
}

// Prev runs the same query at offset Pages.Previous.
func (p *Page[Out]) Prev(ctx context.Context) (*Page[Out], error) {
	return p.run(ctx, p.params.withPagination(p.Pages.Previous, p.params.limit()))
}

// SaveResult holds the outcome of each mutation Save issued. A field is nil
// when its partition was empty.
type SaveResult struct {
	Created *MutationResult `json:"created"`
	Updated *MutationResult `json:"updated"`
}

// Query calls the backend once with params and parses the returned records.
// A missing page size is replaced by the default limit and capped at the max
// limit. Records that fail to parse are reported in Page.Parsed, not as an
// error.
func (b *Builder[In, Out]) Query(ctx context.Context, params QueryParams, opts ...CallOption) (*Page[Out], error) {
	start := time.Now()
	params = b.normalize(params)

	scope, err := b.scope(ctx, opts)
	if err != nil {
		return nil, err
	}

	raw, err := b.backend.Query(ctx, params, scope)
	if err != nil {
		b.obs.observe("query", scope.Index, start, 0, err)
		return nil, err
	}
	if raw == nil {
		raw = &RawResult{}
	}
	b.obs.observe("query", scope.Index, start, raw.Total, nil)

	pr := ParseMany(b.model, raw.Records)
	return &Page[Out]{
		Total:   raw.Total,
		Raw:     raw.Records,
		Parsed:  pr.Parsed,
		Records: pr.Records,
		Pages:   ComputePages(raw.Total, params.from(), params.limit()),
		params:  params,
		run: func(ctx context.Context, next QueryParams) (*Page[Out], error) {
			return b.Query(ctx, next, opts...)
		},
	}, nil
}

// Save creates records whose id is not stored yet and updates the others.
// Updates are the stored record deep-merged with the incoming one, incoming
// values winning. One mutation is issued per non-empty partition, creates
// first unless WithParallelSave is set. An empty batch issues no calls.
func (b *Builder[In, Out]) Save(ctx context.Context, records []In, opts ...CallOption) (*SaveResult, error) {
	if len(records) == 0 {
		return &SaveResult{}, nil
	}
	start := time.Now()

	scope, err := b.scope(ctx, opts)
	if err != nil {
		return nil, err
	}
	idField := scope.IDField
	if idField == "" {
		idField = record.DefaultIDField
	}

	incoming, ids, err := b.prepare(records, idField, scope.Literals)
	if err != nil {
		return nil, err
	}

	stored := map[string]Record{}
	if len(ids) > 0 {
		found, err := b.backend.Query(ctx, QueryParams{
			IDs:        ids,
			Pagination: &Pagination{Limit: len(ids)},
		}, scope)
		if err != nil {
			b.obs.observe("save", scope.Index, start, 0, err)
			return nil, err
		}
		if found != nil {
			for _, r := range found.Records {
				u := record.Unpack(scope.Nesting, r)
				if id, ok := record.ID(u, idField); ok {
					stored[id] = u
				}
			}
		}
	}

	var creates, updates []Record
	for _, rec := range incoming {
		id, ok := record.ID(rec, idField)
		if base, found := stored[id]; ok && found {
			updates = append(updates, record.Merge(base, rec))
			continue
		}
		creates = append(creates, rec)
	}

	res := &SaveResult{}
	mutate := func(ctx context.Context, action Action, recs []Record, dst **MutationResult) error {
		if len(recs) == 0 {
			return nil
		}
		r, err := b.backend.Mutate(ctx, MutationParams{Action: action, Records: recs}, scope)
		*dst = r
		return err
	}

	if b.cfg.parallelSave {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return mutate(gctx, ActionCreate, creates, &res.Created) })
		g.Go(func() error { return mutate(gctx, ActionUpdate, updates, &res.Updated) })
		err = g.Wait()
	} else {
		err = mutate(ctx, ActionCreate, creates, &res.Created)
		if err == nil {
			err = mutate(ctx, ActionUpdate, updates, &res.Updated)
		}
	}
	b.obs.observe("save", scope.Index, start, len(records), err)
	return res, err
}

// prepare converts records, fills missing literals and ids and collects the
// distinct ids.
func (b *Builder[In, Out]) prepare(records []In, idField string, literals map[string]any) ([]Record, []string, error) {
	incoming := make([]Record, len(records))
	ids := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))

	for i, r := range records {
		rec, err := toRecord(r)
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		for k, v := range literals {
			if cur, ok := rec[k]; !ok || cur == nil {
				rec[k] = v
			}
		}
		id, ok := record.ID(rec, idField)
		if !ok && b.cfg.newID != nil {
			id, ok = b.cfg.newID(), true
			rec[idField] = id
		}
		if ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
		incoming[i] = rec
	}
	return incoming, ids, nil
}

// Remove deletes records by id. An empty list issues no call and returns a
// nil result.
func (b *Builder[In, Out]) Remove(ctx context.Context, ids []string, opts ...CallOption) (*MutationResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	start := time.Now()

	scope, err := b.scope(ctx, opts)
	if err != nil {
		return nil, err
	}
	res, err := b.backend.Mutate(ctx, MutationParams{Action: ActionRemove, IDs: ids}, scope)
	total := 0
	if res != nil {
		total = res.Total
	}
	b.obs.observe("remove", scope.Index, start, total, err)
	return res, err
}

func (b *Builder[In, Out]) normalize(p QueryParams) QueryParams {
	limit := p.limit()
	if limit <= 0 {
		limit = b.cfg.defaultLimit
	}
	if limit > b.cfg.maxLimit {
		limit = b.cfg.maxLimit
	}
	return p.withPagination(p.from(), limit)
}

// scope builds the scope of one call: schema meta, then scope functions,
// then call options.
func (b *Builder[In, Out]) scope(ctx context.Context, opts []CallOption) (Scope, error) {
	meta := b.model.Meta()
	s := Scope{
		Collection: b.cfg.collection,
		IDField:    meta.IDField,
		Nesting:    meta.Nesting,
		Literals:   meta.Literals,
	}
	for _, fn := range b.cfg.scopeFns {
		var err error
		if s, err = fn(ctx, s); err != nil {
			return Scope{}, err
		}
	}
	s = s.clone()
	for _, o := range opts {
		o(&s)
	}
	return s, nil
}
