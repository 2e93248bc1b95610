package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain/batch"
)

// Write stores documents as JSON. Creates use JSON.SET NX and report
// db.ErrDocumentExists per id when the key is taken; updates overwrite.
// All commands go out in a single DoMulti round-trip.
func (s *Store) Write(ctx context.Context, index string, action batch.Action, docs []db.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	if action != batch.ActionCreate && action != batch.ActionUpdate {
		return 0, &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("%w: %s", db.ErrUnsupportedAction, action)}
	}

	cmds := make([]rueidis.Completed, len(docs))
	for i, d := range docs {
		args := []string{"$", string(d.Source)}
		if action == batch.ActionCreate {
			args = append(args, "NX")
		}
		cmds[i] = s.b().Arbitrary("JSON.SET").Keys(docKey(index, d.ID)).Args(args...).Build()
	}

	results := make([]batch.Result, len(docs))
	written := 0
	failed := false
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		err := res.Error()
		switch {
		case err == nil:
			results[i] = batch.NewOK(docs[i].ID, action)
			written++
		case rueidis.IsRedisNil(err):
			results[i] = batch.NewError(docs[i].ID, action, db.ErrDocumentExists)
			failed = true
		default:
			results[i] = batch.NewError(docs[i].ID, action, err)
			failed = true
		}
	}
	if failed {
		return written, &db.BulkError{Op: db.OpJSONSet, Total: len(docs), Results: results}
	}
	return written, nil
}

// Delete removes documents by id and returns how many existed.
func (s *Store) Delete(ctx context.Context, index string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = s.b().Del().Key(docKey(index, id)).Build()
	}

	deleted := 0
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		n, err := res.AsInt64()
		if err != nil {
			return deleted, &db.Error{Op: db.OpDel, Err: fmt.Errorf("id %s: %w", ids[i], err)}
		}
		deleted += int(n)
	}
	return deleted, nil
}

// getDocs fetches documents by id in one DoMulti round-trip, preserving id
// order and skipping missing keys.
func (s *Store) getDocs(ctx context.Context, index string, ids []string) ([]db.Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = s.b().Arbitrary("JSON.GET").Keys(docKey(index, id)).Args("$").Build()
	}

	hits := make([]db.Hit, 0, len(ids))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		raw, err := res.ToString()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("id %s: %w", ids[i], err)}
		}
		src, err := unwrapDoc(raw)
		if err != nil {
			return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("id %s: %w", ids[i], err)}
		}
		hits = append(hits, db.Hit{ID: ids[i], Source: src})
	}
	return hits, nil
}

// unwrapDoc turns a "$" path reply into the document itself. RedisJSON
// wraps root-path results in a one-element array.
func unwrapDoc(raw string) (json.RawMessage, error) {
	if len(raw) > 0 && raw[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil, fmt.Errorf("%w: %w", db.ErrMalformedResponse, err)
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("%w: empty document", db.ErrMalformedResponse)
		}
		return arr[0], nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("%w: invalid json document", db.ErrMalformedResponse)
	}
	return json.RawMessage(raw), nil
}
