package recordops

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// sdkMetrics holds prometheus metrics registered for builders.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recordops",
			Name:      "operations_total",
			Help:      "Total record operations by type, collection and status.",
		}, []string{"op", "collection", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recordops",
			Name:      "operation_duration_seconds",
			Help:      "Record operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "collection"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("recordops: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("recordops: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for builder operations.
type observer struct {
	collection string
	logger     *zap.Logger
	metrics    *sdkMetrics
}

func newObserver(collection string, logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{collection: collection, logger: logger, metrics: m}, nil
}

func (o *observer) observe(op, index string, start time.Time, total int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, o.collection, status).Inc()
		o.metrics.duration.WithLabelValues(op, o.collection).Observe(dur.Seconds())
	}

	if o.logger != nil {
		fields := []zap.Field{
			zap.String("op", op),
			zap.String("collection", o.collection),
			zap.String("index", index),
			zap.Duration("duration", dur),
		}
		if err != nil {
			o.logger.Warn("operation failed", append(fields, zap.Error(err))...)
		} else {
			o.logger.Debug("operation completed", append(fields, zap.Int("total", total))...)
		}
	}
}
