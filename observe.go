package riak

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Operation names reported to logs and metrics.
const (
	opPing          = "ping"
	opGetProps      = "bucket.get_props"
	opSetProps      = "bucket.set_props"
	opEnableSearch  = "bucket.enable_search"
	opDisableSearch = "bucket.disable_search"
	opSearchEnabled = "bucket.search_enabled"
	opAwaitSearch   = "bucket.await_search"
	opStore         = "object.store"
	opFetch         = "object.fetch"
	opDelete        = "object.delete"
	opSolrAdd       = "solr.add"
	opSolrDelete    = "solr.delete"
	opSolrSearch    = "solr.search"
)

// Outcome label values. Failures are split by the node's answer so that
// a missing key is not counted like an unreachable node.
const (
	outcomeOK        = "ok"
	outcomeNotFound  = "not_found"
	outcomeRejected  = "rejected"
	outcomeServer    = "server_error"
	outcomeTransport = "transport"
	outcomeInvalid   = "invalid"
	outcomeTimeout   = "state_timeout"
	outcomeError     = "error"
)

// outcome classifies err for the operations counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrRejected):
		return outcomeRejected
	case errors.Is(err, ErrServer):
		return outcomeServer
	case errors.Is(err, ErrTransport):
		return outcomeTransport
	case errors.Is(err, ErrInvalidDocument), errors.Is(err, ErrMissingKey), errors.Is(err, ErrEmptyName):
		return outcomeInvalid
	case errors.Is(err, ErrSearchState):
		return outcomeTimeout
	default:
		return outcomeError
	}
}

// clientMetrics holds prometheus metrics registered for the client.
type clientMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riak",
			Subsystem: "client",
			Name:      "operations_total",
			Help:      "Total client operations by type and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riak",
			Subsystem: "client",
			Name:      "operation_duration_seconds",
			Help:      "Client operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one, so that
// several clients can share a registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("riak: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("riak: register metric: %w", err)
	}
	return nil
}

// observer logs and counts client operations. A nil observer is valid.
type observer struct {
	logger  *zap.Logger
	metrics *clientMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *clientMetrics
	if reg != nil {
		var err error
		m, err = newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(op, target string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	result := outcome(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, result).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("operation failed",
				zap.String("op", op),
				zap.String("target", target),
				zap.String("outcome", result),
				zap.Int("status", StatusCode(err)),
				zap.Duration("duration", dur),
				zap.Error(err),
			)
		} else {
			o.logger.Debug("operation completed",
				zap.String("op", op),
				zap.String("target", target),
				zap.Duration("duration", dur),
			)
		}
	}
}
