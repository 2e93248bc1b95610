package opensearch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	"github.com/opensearch-project/opensearch-go/v4/signer/awsv2"

	"github.com/kailas-cloud/recordops/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Refresh policies accepted by Config.Refresh.
const (
	RefreshNone    = ""
	RefreshTrue    = "true"
	RefreshWaitFor = "wait_for"
)

// Config holds connection parameters for an OpenSearch store.
type Config struct {
	Addrs              []string
	Username           string
	Password           string
	InsecureSkipVerify bool
	// Refresh is passed to bulk requests so writes become searchable
	// before the call returns.
	Refresh string
	// AWS enables SigV4 request signing with the default credential chain.
	AWS *AWSConfig
}

// AWSConfig selects the region and service name used for SigV4 signing.
type AWSConfig struct {
	Region  string
	Service string // "es" for managed domains, "aoss" for serverless
}

// api is the subset of opensearchapi.Client used by the store.
type api interface {
	Search(ctx context.Context, req *opensearchapi.SearchReq) (*opensearchapi.SearchResp, error)
	Bulk(ctx context.Context, req opensearchapi.BulkReq) (*opensearchapi.BulkResp, error)
	Ping(ctx context.Context, req *opensearchapi.PingReq) (*opensearch.Response, error)
}

// indicesAPI is the subset of the indices namespace used by the store.
type indicesAPI interface {
	Create(ctx context.Context, req opensearchapi.IndicesCreateReq) (*opensearchapi.IndicesCreateResp, error)
	Delete(ctx context.Context, req opensearchapi.IndicesDeleteReq) (*opensearchapi.IndicesDeleteResp, error)
	Exists(ctx context.Context, req opensearchapi.IndicesExistsReq) (*opensearch.Response, error)
}

// Store implements db.Store over the OpenSearch REST API.
type Store struct {
	api     api
	indices indicesAPI
	refresh string
}

// NewStore creates an OpenSearch store. The handle is owned by the caller;
// there is no shared client.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	osCfg := opensearch.Config{
		Addresses: cfg.Addrs,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureSkipVerify {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for local clusters
		}
	}
	if cfg.AWS != nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		service := cfg.AWS.Service
		if service == "" {
			service = "es"
		}
		signer, err := awsv2.NewSignerWithService(awsCfg, service)
		if err != nil {
			return nil, fmt.Errorf("create sigv4 signer: %w", err)
		}
		osCfg.Signer = signer
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{Client: osCfg})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{api: client, indices: client.Indices, refresh: cfg.Refresh}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.api.Ping(ctx, &opensearchapi.PingReq{})
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	if resp != nil && resp.IsError() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// Close releases nothing: the HTTP transport is shared with the process.
func (s *Store) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for opensearch: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// errorType returns the server-side error type (e.g. index_not_found_exception)
// carried by err, or "".
func errorType(err error) string {
	var se *opensearch.StructError
	if errors.As(err, &se) {
		return se.Err.Type
	}
	return ""
}
