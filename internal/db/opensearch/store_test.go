package opensearch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain/batch"
)

// --- mocks ---

type mockAPI struct {
	searchFn func(ctx context.Context, req *opensearchapi.SearchReq) (*opensearchapi.SearchResp, error)
	bulkFn   func(ctx context.Context, req opensearchapi.BulkReq) (*opensearchapi.BulkResp, error)
	pingFn   func(ctx context.Context, req *opensearchapi.PingReq) (*opensearch.Response, error)
}

func (m *mockAPI) Search(ctx context.Context, req *opensearchapi.SearchReq) (*opensearchapi.SearchResp, error) {
	return m.searchFn(ctx, req)
}

func (m *mockAPI) Bulk(ctx context.Context, req opensearchapi.BulkReq) (*opensearchapi.BulkResp, error) {
	return m.bulkFn(ctx, req)
}

func (m *mockAPI) Ping(ctx context.Context, req *opensearchapi.PingReq) (*opensearch.Response, error) {
	return m.pingFn(ctx, req)
}

type mockIndices struct {
	createFn func(ctx context.Context, req opensearchapi.IndicesCreateReq) (*opensearchapi.IndicesCreateResp, error)
	deleteFn func(ctx context.Context, req opensearchapi.IndicesDeleteReq) (*opensearchapi.IndicesDeleteResp, error)
	existsFn func(ctx context.Context, req opensearchapi.IndicesExistsReq) (*opensearch.Response, error)
}

func (m *mockIndices) Create(
	ctx context.Context, req opensearchapi.IndicesCreateReq,
) (*opensearchapi.IndicesCreateResp, error) {
	return m.createFn(ctx, req)
}

func (m *mockIndices) Delete(
	ctx context.Context, req opensearchapi.IndicesDeleteReq,
) (*opensearchapi.IndicesDeleteResp, error) {
	return m.deleteFn(ctx, req)
}

func (m *mockIndices) Exists(ctx context.Context, req opensearchapi.IndicesExistsReq) (*opensearch.Response, error) {
	return m.existsFn(ctx, req)
}

func searchResp(t *testing.T, raw string) *opensearchapi.SearchResp {
	t.Helper()
	var resp opensearchapi.SearchResp
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("decode search fixture: %v", err)
	}
	return &resp
}

func bulkResp(t *testing.T, raw string) *opensearchapi.BulkResp {
	t.Helper()
	var resp opensearchapi.BulkResp
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("decode bulk fixture: %v", err)
	}
	return &resp
}

func readLines(t *testing.T, r io.Reader) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// --- search.go tests ---

func TestSearch_Success(t *testing.T) {
	var gotIndex string
	var gotBody map[string]any
	api := &mockAPI{
		searchFn: func(_ context.Context, req *opensearchapi.SearchReq) (*opensearchapi.SearchResp, error) {
			gotIndex = req.Indices[0]
			if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			return searchResp(t, `{"hits":{"total":{"value":95,"relation":"eq"},"hits":[
				{"_index":"prod-usage","_id":"1","_source":{"id":"1","name":"A"}},
				{"_index":"prod-usage","_id":"2","_source":{"id":"2","name":"B"}}
			]}}`), nil
		},
	}
	s := &Store{api: api}

	res, err := s.Search(context.Background(), &db.Query{Index: "prod-usage", Offset: 20, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotIndex != "prod-usage" {
		t.Errorf("index = %q", gotIndex)
	}
	if gotBody["from"] != float64(20) || gotBody["size"] != float64(10) {
		t.Errorf("body = %v", gotBody)
	}
	if res.Total != 95 {
		t.Errorf("Total = %d, want 95", res.Total)
	}
	if len(res.Hits) != 2 || res.Hits[1].ID != "2" {
		t.Fatalf("hits = %+v", res.Hits)
	}
	if string(res.Hits[0].Source) != `{"id":"1","name":"A"}` {
		t.Errorf("source = %s", res.Hits[0].Source)
	}
}

func TestSearch_IndexNotFound(t *testing.T) {
	api := &mockAPI{
		searchFn: func(context.Context, *opensearchapi.SearchReq) (*opensearchapi.SearchResp, error) {
			se := &opensearch.StructError{Status: http.StatusNotFound}
			se.Err.Type = "index_not_found_exception"
			return nil, se
		},
	}
	s := &Store{api: api}

	_, err := s.Search(context.Background(), &db.Query{Index: "missing"})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	upstream := errors.New("connection refused")
	api := &mockAPI{
		searchFn: func(context.Context, *opensearchapi.SearchReq) (*opensearchapi.SearchResp, error) {
			return nil, upstream
		},
	}
	s := &Store{api: api}

	_, err := s.Search(context.Background(), &db.Query{Index: "idx"})
	if !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch {
		t.Errorf("expected *db.Error with op SEARCH, got %v", err)
	}
}

func TestSearch_RequiresIndex(t *testing.T) {
	s := &Store{api: &mockAPI{}}
	if _, err := s.Search(context.Background(), &db.Query{}); err == nil {
		t.Fatal("expected error")
	}
}

// --- bulk.go tests ---

func TestWrite_CreateBody(t *testing.T) {
	var lines []string
	var refresh string
	api := &mockAPI{
		bulkFn: func(_ context.Context, req opensearchapi.BulkReq) (*opensearchapi.BulkResp, error) {
			lines = readLines(t, req.Body)
			refresh = req.Params.Refresh
			return bulkResp(t, `{"errors":false,"items":[
				{"create":{"_index":"idx","_id":"1","status":201}},
				{"create":{"_index":"idx","_id":"2","status":201}}
			]}`), nil
		},
	}
	s := &Store{api: api, refresh: RefreshWaitFor}

	n, err := s.Write(context.Background(), "idx", batch.ActionCreate, []db.Document{
		{ID: "1", Source: json.RawMessage(`{"id":"1"}`)},
		{ID: "2", Source: json.RawMessage(`{"id":"2"}`)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}
	want := []string{
		`{"create":{"_index":"idx","_id":"1"}}`,
		`{"id":"1"}`,
		`{"create":{"_index":"idx","_id":"2"}}`,
		`{"id":"2"}`,
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("bulk body =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
	if refresh != RefreshWaitFor {
		t.Errorf("refresh = %q, want wait_for", refresh)
	}
}

func TestWrite_UpdateUsesIndexOp(t *testing.T) {
	var first string
	api := &mockAPI{
		bulkFn: func(_ context.Context, req opensearchapi.BulkReq) (*opensearchapi.BulkResp, error) {
			first = readLines(t, req.Body)[0]
			return bulkResp(t, `{"items":[{"index":{"_id":"1","status":200}}]}`), nil
		},
	}
	s := &Store{api: api}

	if _, err := s.Write(context.Background(), "idx", batch.ActionUpdate, []db.Document{
		{ID: "1", Source: json.RawMessage(`{}`)},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(first, `{"index":`) {
		t.Errorf("meta line = %s", first)
	}
}

func TestWrite_ItemFailures(t *testing.T) {
	api := &mockAPI{
		bulkFn: func(context.Context, opensearchapi.BulkReq) (*opensearchapi.BulkResp, error) {
			return bulkResp(t, `{"errors":true,"items":[
				{"create":{"_id":"1","status":201}},
				{"create":{"_id":"2","status":409,"error":{"type":"version_conflict_engine_exception","reason":"exists"}}},
				{"create":{"_id":"3","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad field"}}}
			]}`), nil
		},
	}
	s := &Store{api: api}

	n, err := s.Write(context.Background(), "idx", batch.ActionCreate, []db.Document{
		{ID: "1", Source: json.RawMessage(`{}`)},
		{ID: "2", Source: json.RawMessage(`{}`)},
		{ID: "3", Source: json.RawMessage(`{}`)},
	})
	if n != 1 {
		t.Errorf("written = %d, want 1", n)
	}
	if !errors.Is(err, db.ErrDocumentExists) {
		t.Fatalf("expected ErrDocumentExists in %v", err)
	}
	var bulkErr *db.BulkError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("expected *db.BulkError, got %T", err)
	}
	failed := batch.Failed(bulkErr.Results)
	if len(failed) != 2 || !strings.Contains(failed[1].Err().Error(), "mapper_parsing_exception") {
		t.Errorf("failed = %v", failed)
	}
}

func TestWrite_MismatchedItems(t *testing.T) {
	api := &mockAPI{
		bulkFn: func(context.Context, opensearchapi.BulkReq) (*opensearchapi.BulkResp, error) {
			return bulkResp(t, `{"items":[]}`), nil
		},
	}
	s := &Store{api: api}
	_, err := s.Write(context.Background(), "idx", batch.ActionUpdate, []db.Document{{ID: "1", Source: json.RawMessage(`{}`)}})
	if !errors.Is(err, db.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestWrite_Empty(t *testing.T) {
	s := &Store{api: &mockAPI{}}
	if n, err := s.Write(context.Background(), "idx", batch.ActionCreate, nil); n != 0 || err != nil {
		t.Fatalf("Write(nil) = %d, %v", n, err)
	}
}

func TestDelete_MissingIDsAreNotErrors(t *testing.T) {
	var lines []string
	api := &mockAPI{
		bulkFn: func(_ context.Context, req opensearchapi.BulkReq) (*opensearchapi.BulkResp, error) {
			lines = readLines(t, req.Body)
			return bulkResp(t, `{"items":[
				{"delete":{"_id":"1","status":200}},
				{"delete":{"_id":"2","status":404}}
			]}`), nil
		},
	}
	s := &Store{api: api}

	n, err := s.Delete(context.Background(), "idx", []string{"1", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if len(lines) != 2 || lines[1] != `{"delete":{"_index":"idx","_id":"2"}}` {
		t.Errorf("bulk body = %v", lines)
	}
}

// --- index.go tests ---

func TestCreateIndex_Mappings(t *testing.T) {
	var body map[string]any
	idx := &mockIndices{
		createFn: func(_ context.Context, req opensearchapi.IndicesCreateReq) (*opensearchapi.IndicesCreateResp, error) {
			if req.Index != "prod-usage" {
				t.Errorf("index = %q", req.Index)
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			return &opensearchapi.IndicesCreateResp{}, nil
		},
	}
	s := &Store{indices: idx}

	def := db.NewIndex("prod-usage").Keyword("status").Numeric("attributes.amount").MustBuild()
	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	jsonEqual(t, body, `{"mappings":{"properties":{
		"status":{"type":"text","fields":{"keyword":{"type":"keyword"}}},
		"attributes":{"properties":{"amount":{"type":"double"}}}
	}}}`)
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	idx := &mockIndices{
		createFn: func(context.Context, opensearchapi.IndicesCreateReq) (*opensearchapi.IndicesCreateResp, error) {
			se := &opensearch.StructError{Status: http.StatusBadRequest}
			se.Err.Type = "resource_already_exists_exception"
			return nil, se
		},
	}
	s := &Store{indices: idx}
	err := s.CreateIndex(context.Background(), db.NewIndex("i").MustBuild())
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   bool
	}{
		{"exists", http.StatusOK, nil, true},
		{"missing", http.StatusNotFound, nil, false},
		{"missing with error", http.StatusNotFound, errors.New("404"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &mockIndices{
				existsFn: func(context.Context, opensearchapi.IndicesExistsReq) (*opensearch.Response, error) {
					return &opensearch.Response{StatusCode: tt.status}, tt.err
				},
			}
			s := &Store{indices: idx}
			got, err := s.IndexExists(context.Background(), "i")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IndexExists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	idx := &mockIndices{
		deleteFn: func(context.Context, opensearchapi.IndicesDeleteReq) (*opensearchapi.IndicesDeleteResp, error) {
			se := &opensearch.StructError{Status: http.StatusNotFound}
			se.Err.Type = "index_not_found_exception"
			return nil, se
		},
	}
	s := &Store{indices: idx}
	if err := s.DropIndex(context.Background(), "i"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

// --- client.go tests ---

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		resp    *opensearch.Response
		err     error
		wantErr bool
	}{
		{"ok", &opensearch.Response{StatusCode: http.StatusOK}, nil, false},
		{"error status", &opensearch.Response{StatusCode: http.StatusServiceUnavailable}, nil, true},
		{"transport error", nil, errors.New("dial"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{api: &mockAPI{
				pingFn: func(context.Context, *opensearchapi.PingReq) (*opensearch.Response, error) {
					return tt.resp, tt.err
				},
			}}
			err := s.Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Ping() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(context.Background(), Config{}); err == nil {
		t.Fatal("expected error")
	}
}
