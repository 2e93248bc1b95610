package recordops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/recordops/internal/db"
	dbOpenSearch "github.com/kailas-cloud/recordops/internal/db/opensearch"
	dbRedis "github.com/kailas-cloud/recordops/internal/db/redis"
	collectionrepo "github.com/kailas-cloud/recordops/internal/repository/collection"
	recordrepo "github.com/kailas-cloud/recordops/internal/repository/record"
)

const defaultReadinessTimeout = 10 * time.Second

// Client owns a store connection and hands out Backends over it.
type Client struct {
	store       db.Store
	driver      string
	instance    string
	records     *recordrepo.Repo
	collections *collectionrepo.Repo
}

// NewClient creates a Client and waits until the store answers.
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("recordops: store address required (use WithOpenSearch or WithRedis)")
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("recordops: store not ready: %w", err)
	}

	return newClient(store, cfg), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case DriverOpenSearch:
		osCfg := dbOpenSearch.Config{
			Addrs:              cfg.addrs,
			Username:           cfg.username,
			Password:           cfg.password,
			InsecureSkipVerify: cfg.insecureTLS,
			Refresh:            cfg.refresh,
		}
		if cfg.awsRegion != "" {
			osCfg.AWS = &dbOpenSearch.AWSConfig{Region: cfg.awsRegion, Service: cfg.awsService}
		}
		s, err := dbOpenSearch.NewStore(ctx, osCfg)
		if err != nil {
			return nil, fmt.Errorf("recordops: create opensearch store: %w", err)
		}
		return s, nil
	case DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
			DB:       cfg.redisDB,

			TLS:                cfg.tls,
			InsecureSkipVerify: cfg.insecureTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("recordops: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("recordops: unknown driver %q", cfg.driver)
	}
}

func newClient(store db.Store, cfg *clientConfig) *Client {
	return &Client{
		store:       store,
		driver:      cfg.driver,
		instance:    cfg.instance,
		records:     recordrepo.New(store),
		collections: collectionrepo.New(store),
	}
}

// Backend returns a Backend over the client store. OpenSearch queries count
// every match (track_total_hits) unless the scope body says otherwise.
func (c *Client) Backend() Backend {
	b := &storeBackend{repo: c.records}
	if c.driver == DriverOpenSearch {
		b.body = map[string]any{"track_total_hits": true}
	}
	return b
}

// Driver returns the storage driver name.
func (c *Client) Driver() string { return c.driver }

// Instance returns the prefix of indexes derived from schema literals.
func (c *Client) Instance() string { return c.instance }

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
