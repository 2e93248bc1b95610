package health

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/recordops/internal/domain"
)

// Status is the aggregated health of the service.
type Status string

const (
	// Healthy means the backend answers and every collection index exists.
	Healthy Status = "ok"
	// Degraded means the backend answers but some indexes are missing or unreadable.
	Degraded Status = "degraded"
	// Unhealthy means the backend is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	CheckOK      CheckResult = "ok"
	CheckMissing CheckResult = "missing"
	CheckError   CheckResult = "error"
)

// Check names reported in Report.Checks.
const (
	CheckBackend = "backend"
	CheckIndexes = "indexes"
)

const defaultTimeout = 2 * time.Second

// Report aggregates check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs health checks against the backend and collection indexes.
type Service struct {
	backend BackendPinger
	indexes IndexChecker
	timeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each check. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Service. indexes can be nil.
func New(backend BackendPinger, indexes IndexChecker, opts ...Option) *Service {
	s := &Service{backend: backend, indexes: indexes, timeout: defaultTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check pings the backend, then verifies collection indexes. Index checks
// are skipped while the backend is down.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)

	if err := s.run(ctx, s.backend.Ping); err != nil {
		checks[CheckBackend] = CheckError
		return Report{Status: Unhealthy, Checks: checks}
	}
	checks[CheckBackend] = CheckOK

	if s.indexes == nil {
		return Report{Status: Healthy, Checks: checks}
	}

	err := s.run(ctx, s.indexes.CheckIndexes)
	switch {
	case err == nil:
		checks[CheckIndexes] = CheckOK
		return Report{Status: Healthy, Checks: checks}
	case errors.Is(err, domain.ErrNotFound):
		checks[CheckIndexes] = CheckMissing
	default:
		checks[CheckIndexes] = CheckError
	}
	return Report{Status: Degraded, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return check(ctx)
}
