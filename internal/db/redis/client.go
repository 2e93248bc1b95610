package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/recordops/internal/db"
)

var _ db.Store = (*Store)(nil)

const clientName = "recordops"

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// TLS enables TLS; InsecureSkipVerify disables certificate checks.
	TLS                bool
	InsecureSkipVerify bool
}

// Store keeps records as RedisJSON documents under <index>:<id> keys, with a
// RediSearch index per collection. Requires Redis 8+ or Redis Stack 7.4+.
type Store struct {
	client rueidis.Client
}

// NewStore connects to Redis via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}

	opt := rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		DisableCache: true,
		// FT.SEARCH replies are parsed as RESP2 arrays.
		AlwaysRESP2: true,
	}
	if cfg.TLS {
		opt.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local clusters
		}
	}

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with doubling backoff, capped at one second, until
// Redis answers or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := 50 * time.Millisecond
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", errors.Join(ctx.Err(), err))
		case <-time.After(delay):
		}
		delay = min(2*delay, time.Second)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// docKey is the key of a record document: <index>:<id>.
func docKey(index, id string) string {
	return index + ":" + id
}

// docID strips the <index>: prefix from a document key.
func docID(index, key string) string {
	return strings.TrimPrefix(key, index+":")
}

// isRedisErr reports whether err is a server error whose message contains
// any of substrs, ignoring case.
func isRedisErr(err error, substrs ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, s := range substrs {
		if strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// isUnknownIndex matches the FT.* replies for a missing index across
// Redis versions.
func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name", "no such index")
}
