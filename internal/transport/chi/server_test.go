package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recordops"
	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
	"github.com/kailas-cloud/recordops/internal/domain/record"
	collectionuc "github.com/kailas-cloud/recordops/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/recordops/internal/usecase/health"
	recordsuc "github.com/kailas-cloud/recordops/internal/usecase/records"
)

// --- Mocks ---

type mockBackend struct {
	queryFn  func(p recordops.QueryParams) (*recordops.RawResult, error)
	mutateFn func(p recordops.MutationParams) (*recordops.MutationResult, error)
	queries  []recordops.QueryParams
}

func (m *mockBackend) funcs() recordops.BackendFuncs {
	return recordops.BackendFuncs{
		QueryFunc: func(_ context.Context, p recordops.QueryParams, _ recordops.Scope) (*recordops.RawResult, error) {
			m.queries = append(m.queries, p)
			if m.queryFn != nil {
				return m.queryFn(p)
			}
			return &recordops.RawResult{}, nil
		},
		MutationFunc: func(_ context.Context, p recordops.MutationParams, _ recordops.Scope) (*recordops.MutationResult, error) {
			if m.mutateFn != nil {
				return m.mutateFn(p)
			}
			return &recordops.MutationResult{Total: len(p.Records) + len(p.IDs), Records: p.Records}, nil
		},
	}
}

type mockIndexRepo struct {
	exists bool
}

func (m *mockIndexRepo) Ensure(context.Context, domcol.Collection) (bool, error) { return false, nil }
func (m *mockIndexRepo) Exists(context.Context, domcol.Collection) (bool, error) {
	return m.exists, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

type testEnv struct {
	backend *mockBackend
	pinger  *mockPinger
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	col, err := domcol.New(domcol.Definition{
		Name:     "usage",
		Index:    "prod-usage",
		Nesting:  record.Nesting{{Field: "amount"}},
		Required: []string{"status"},
	})
	if err != nil {
		t.Fatalf("collection.New: %v", err)
	}
	cols := []domcol.Collection{col}

	env := &testEnv{backend: &mockBackend{}, pinger: &mockPinger{}}
	colSvc, err := collectionuc.New(&mockIndexRepo{exists: true}, cols)
	if err != nil {
		t.Fatalf("collection service: %v", err)
	}
	recSvc, err := recordsuc.New(env.backend.funcs(), cols)
	if err != nil {
		t.Fatalf("records service: %v", err)
	}

	srv := NewServer(colSvc, recSvc, healthuc.New(env.pinger, colSvc), zap.NewNop())
	r := chi.NewRouter()
	srv.Routes(r)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

// --- Tests ---

func TestListCollections(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/collections", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}

	resp := decodeBody[listResponse[collectionResponse]](t, rr)
	if resp.Count != 1 || resp.Items[0].Index != "prod-usage" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := resp.Items[0].Nested; len(got) != 1 || got[0].Container != "attributes" {
		t.Errorf("unexpected nesting: %+v", got)
	}
}

func TestQueryRecords(t *testing.T) {
	env := newTestEnv(t)
	env.backend.queryFn = func(recordops.QueryParams) (*recordops.RawResult, error) {
		return &recordops.RawResult{Total: 95, Records: []recordops.Record{
			{"id": "1", "status": "ok", "attributes": map[string]any{"amount": 2.0}},
			{"id": "2"},
		}}, nil
	}

	rr := env.do(t, http.MethodPost, "/collections/usage/query",
		`{"filter":{"and":{"terms":[{"status":"ok"}]}},"pagination":{"from":20,"limit":10}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}

	resp := decodeBody[queryResponse](t, rr)
	if resp.Total != 95 || len(resp.Records) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Records[0]["amount"] != 2.0 {
		t.Errorf("expected unpacked record, got %v", resp.Records[0])
	}
	wantPages := recordops.Pages{Count: 10, Number: 2, Next: 30, Previous: 10}
	if resp.Pages != wantPages {
		t.Errorf("pages = %+v, want %+v", resp.Pages, wantPages)
	}
	if len(resp.Invalid) != 1 || resp.Invalid[0].Index != 1 {
		t.Fatalf("unexpected invalid list: %+v", resp.Invalid)
	}
	if f := resp.Invalid[0].Fields; len(f) != 1 || f[0].Field != "status" || f[0].Rule != "required" {
		t.Errorf("unexpected field errors: %+v", f)
	}
	if f := env.backend.queries[0].Filter; f == nil || f.And == nil || len(f.And.Terms) != 1 {
		t.Errorf("filter not passed through: %+v", f)
	}
}

func TestQueryRecords_EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/collections/usage/query", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}
	resp := decodeBody[queryResponse](t, rr)
	if resp.Records == nil || resp.Invalid == nil {
		t.Errorf("expected empty lists, got %+v", resp)
	}
	if p := env.backend.queries[0].Pagination; p == nil || p.Limit != recordops.DefaultLimit {
		t.Errorf("expected default limit, got %+v", p)
	}
}

func TestListRecords_BindsQueryString(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet,
		"/collections/usage/records?ids=1,2&from=4&limit=2&fields=id,status&sort=status:desc,id", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}

	got := env.backend.queries[0]
	want := recordops.QueryParams{
		IDs:        []string{"1", "2"},
		Fields:     []string{"id", "status"},
		Pagination: &recordops.Pagination{From: 4, Limit: 2},
		Sort:       []recordops.Sort{{Field: "status", Order: recordops.Desc}, {Field: "id"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("params = %+v, want %+v", got, want)
	}
}

func TestListRecords_BadParams(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"limit=abc", "sort=id:sideways", "sort=:asc"} {
		rr := env.do(t, http.MethodGet, "/collections/usage/records?"+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, rr.Code)
		}
	}
	if len(env.backend.queries) != 0 {
		t.Errorf("backend should not be called, got %d queries", len(env.backend.queries))
	}
}

func TestSaveRecords(t *testing.T) {
	env := newTestEnv(t)
	var actions []recordops.Action
	env.backend.mutateFn = func(p recordops.MutationParams) (*recordops.MutationResult, error) {
		actions = append(actions, p.Action)
		return &recordops.MutationResult{Total: len(p.Records)}, nil
	}

	rr := env.do(t, http.MethodPost, "/collections/usage/records",
		`{"records":[{"id":"1","status":"ok"},{"id":"2","status":"ok"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}
	resp := decodeBody[recordops.SaveResult](t, rr)
	if resp.Created == nil || resp.Created.Total != 2 || resp.Updated != nil {
		t.Errorf("unexpected result: %+v", resp)
	}
	if !reflect.DeepEqual(actions, []recordops.Action{recordops.ActionCreate}) {
		t.Errorf("actions = %v", actions)
	}
}

func TestSaveRecords_BadBody(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/collections/usage/records", `{"records":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestRemoveRecords(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodDelete, "/collections/usage/records", `{"ids":["1","2","3"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}
	if resp := decodeBody[removeResponse](t, rr); resp.Total != 3 {
		t.Errorf("total = %d", resp.Total)
	}

	rr = env.do(t, http.MethodDelete, "/collections/usage/records", `{"ids":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("empty remove: status %d", rr.Code)
	}
	if resp := decodeBody[removeResponse](t, rr); resp.Total != 0 {
		t.Errorf("empty remove total = %d", resp.Total)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody ErrorCode
	}{
		{"backend failure", &db.Error{Op: db.OpSearch, Err: errors.New("connection reset")}, http.StatusBadGateway, CodeBackendError},
		{"missing index", &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}, http.StatusNotFound, CodeIndexNotFound},
		{"unsupported filter", db.ErrUnsupportedFilter, http.StatusNotImplemented, CodeNotImplemented},
		{"invalid query", domain.ErrInvalidQuery, http.StatusBadRequest, CodeBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.backend.queryFn = func(recordops.QueryParams) (*recordops.RawResult, error) {
				return nil, tt.err
			}

			rr := env.do(t, http.MethodPost, "/collections/usage/query", `{}`)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			resp := decodeBody[ErrorResponse](t, rr)
			if resp.Code != tt.wantBody {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantBody)
			}
			if strings.Contains(resp.Message, "connection reset") {
				t.Errorf("internal detail leaked: %s", resp.Message)
			}
		})
	}
}

func TestErrorMapping_UnknownCollection(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/collections/nope/query", `{}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if resp := decodeBody[ErrorResponse](t, rr); resp.Code != CodeCollectionNotFound {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestErrorMapping_SaveFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation", &domain.ValidationError{Fields: []domain.FieldError{{Field: "id", Rule: "required"}}}, http.StatusUnprocessableEntity},
		{"bulk failure", &db.BulkError{Op: db.OpBulk}, http.StatusBadGateway},
		{"document exists", db.ErrDocumentExists, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.backend.mutateFn = func(recordops.MutationParams) (*recordops.MutationResult, error) {
				return nil, tt.err
			}

			rr := env.do(t, http.MethodPost, "/collections/usage/records", `{"records":[{"status":"ok"}]}`)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantCode, rr.Body)
			}
		})
	}
}

func TestValidationResponse_ListsFields(t *testing.T) {
	env := newTestEnv(t)
	env.backend.mutateFn = func(recordops.MutationParams) (*recordops.MutationResult, error) {
		return nil, &domain.ValidationError{Fields: []domain.FieldError{{Field: "id", Rule: "required"}}}
	}

	rr := env.do(t, http.MethodPost, "/collections/usage/records", `{"records":[{"status":"ok"}]}`)
	resp := decodeBody[ErrorResponse](t, rr)
	if resp.Code != CodeValidationFailed || len(resp.Fields) != 1 || resp.Fields[0].Field != "id" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	resp := decodeBody[healthResponse](t, rr)
	if resp.Status != "ok" || resp.Checks["indexes"] != healthuc.CheckOK {
		t.Errorf("unexpected report: %+v", resp)
	}

	env.pinger.err = errors.New("down")
	rr = env.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}
