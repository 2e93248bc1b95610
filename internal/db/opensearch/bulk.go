package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain/batch"
)

// Bulk operation names.
const (
	opCreate = "create"
	opIndex  = "index"
	opDelete = "delete"
)

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// Write sends docs in one bulk request. Creates use the create operation and
// fail per document on an existing id; updates use index, replacing the
// stored document with the already-merged one.
func (s *Store) Write(ctx context.Context, index string, action batch.Action, docs []db.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var op string
	switch action {
	case batch.ActionCreate:
		op = opCreate
	case batch.ActionUpdate:
		op = opIndex
	default:
		return 0, &db.Error{Op: db.OpBulk, Err: fmt.Errorf("%w: %s", db.ErrUnsupportedAction, action)}
	}

	var buf bytes.Buffer
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		if err := writeMeta(&buf, op, index, d.ID); err != nil {
			return 0, err
		}
		buf.Write(d.Source)
		buf.WriteByte('\n')
	}

	results, err := s.bulk(ctx, &buf, action, ids)
	if err != nil {
		return 0, err
	}
	return countAndCheck(results, len(docs))
}

// Delete removes documents by id. Ids that are not stored are not errors.
func (s *Store) Delete(ctx context.Context, index string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, id := range ids {
		if err := writeMeta(&buf, opDelete, index, id); err != nil {
			return 0, err
		}
	}

	results, err := s.bulk(ctx, &buf, batch.ActionRemove, ids)
	if err != nil {
		return 0, err
	}
	return countAndCheck(results, len(ids))
}

var errNotStored = errors.New("not stored")

func (s *Store) bulk(ctx context.Context, body *bytes.Buffer, action batch.Action, ids []string) ([]batch.Result, error) {
	req := opensearchapi.BulkReq{Body: body}
	if s.refresh != RefreshNone {
		req.Params.Refresh = s.refresh
	}

	resp, err := s.api.Bulk(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpBulk, Err: err}
	}
	if len(resp.Items) != len(ids) {
		return nil, &db.Error{Op: db.OpBulk, Err: fmt.Errorf("%w: %d items for %d documents",
			db.ErrMalformedResponse, len(resp.Items), len(ids))}
	}

	results := make([]batch.Result, len(ids))
	for i, item := range resp.Items {
		for _, r := range item {
			switch {
			case r.Status >= 200 && r.Status < 300:
				results[i] = batch.NewOK(ids[i], action)
			case r.Status == http.StatusNotFound && action == batch.ActionRemove:
				results[i] = batch.NewError(ids[i], action, errNotStored)
			case r.Status == http.StatusConflict:
				results[i] = batch.NewError(ids[i], action, db.ErrDocumentExists)
			default:
				reason := fmt.Sprintf("status %d", r.Status)
				if r.Error != nil {
					reason = r.Error.Type + ": " + r.Error.Reason
				}
				results[i] = batch.NewError(ids[i], action, errors.New(reason))
			}
		}
	}
	return results, nil
}

// countAndCheck counts successful items. Removes of missing ids are skipped
// silently; any other failed item turns into a *db.BulkError.
func countAndCheck(results []batch.Result, total int) (int, error) {
	ok := 0
	failed := false
	for _, r := range results {
		switch {
		case r.Status() == batch.StatusOK:
			ok++
		case errors.Is(r.Err(), errNotStored):
		default:
			failed = true
		}
	}
	if failed {
		return ok, &db.BulkError{Op: db.OpBulk, Total: total, Results: results}
	}
	return ok, nil
}

func writeMeta(buf *bytes.Buffer, op, index, id string) error {
	meta, err := json.Marshal(map[string]bulkMeta{op: {Index: index, ID: id}})
	if err != nil {
		return &db.Error{Op: db.OpBulk, Err: err}
	}
	buf.Write(meta)
	buf.WriteByte('\n')
	return nil
}
