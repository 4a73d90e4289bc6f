package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/metrics"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/hashicorp/go-hclog"
)

// IEndpoint is one remote collector a reading is pushed to.
type IEndpoint interface {
	Address() string
	Deliver(ctx context.Context, reading model.TelemetryReading) error
}

// DeliveryResult is the outcome of one push to one endpoint.
type DeliveryResult struct {
	Address string
	Err     error
}

// Broadcaster pushes every reading to all endpoints in parallel, each with
// its own timeout. Nothing is retried: the next tick supersedes a lost reading.
type Broadcaster struct {
	endpoints []IEndpoint
	timeout   time.Duration
	logger    hclog.Logger
}

func NewBroadcaster(endpoints []IEndpoint, timeout time.Duration, logger hclog.Logger) *Broadcaster {
	return &Broadcaster{
		endpoints: endpoints,
		timeout:   timeout,
		logger:    logger.Named("broadcaster"),
	}
}

// NewEndpoints builds endpoints from addresses. http(s) addresses receive a
// JSON POST; nats addresses publish on the subject given by the URL path.
func NewEndpoints(addresses []string, logger hclog.Logger) ([]IEndpoint, error) {
	endpoints := make([]IEndpoint, 0, len(addresses))
	for _, address := range addresses {
		parsed, err := url.Parse(address)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %q: %w", address, err)
		}

		switch parsed.Scheme {
		case "http", "https":
			endpoints = append(endpoints, NewHttpEndpoint(address))
		case "nats", "tls":
			endpoint, err := NewNatsEndpoint(parsed, logger)
			if err != nil {
				return nil, err
			}
			endpoints = append(endpoints, endpoint)
		default:
			return nil, fmt.Errorf("unsupported endpoint scheme %q in %s", parsed.Scheme, address)
		}
	}
	return endpoints, nil
}

func (broadcaster *Broadcaster) Name() string {
	return "broadcaster"
}

// HandleReading never fails; delivery problems are logged per endpoint.
func (broadcaster *Broadcaster) HandleReading(ctx context.Context, reading model.TelemetryReading) error {
	broadcaster.Broadcast(ctx, reading)
	return nil
}

// Broadcast returns once every endpoint has either accepted the reading or
// timed out. Results are in endpoint order.
func (broadcaster *Broadcaster) Broadcast(ctx context.Context, reading model.TelemetryReading) []DeliveryResult {
	results := make([]DeliveryResult, len(broadcaster.endpoints))

	var wg sync.WaitGroup
	for i, endpoint := range broadcaster.endpoints {
		wg.Add(1)
		go func(i int, endpoint IEndpoint) {
			defer wg.Done()
			results[i] = broadcaster.deliver(ctx, endpoint, reading)
		}(i, endpoint)
	}
	wg.Wait()

	return results
}

func (broadcaster *Broadcaster) deliver(ctx context.Context, endpoint IEndpoint, reading model.TelemetryReading) DeliveryResult {
	deliveryCtx, cancel := context.WithTimeout(ctx, broadcaster.timeout)
	defer cancel()

	err := endpoint.Deliver(deliveryCtx, reading)
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues(endpoint.Address(), metrics.OutcomeFailed).Inc()
		broadcaster.logger.Warn("failed to send reading", "site", reading.SiteId, "minute", reading.Minute,
			"endpoint", endpoint.Address(), "error", err)
	} else {
		metrics.DeliveriesTotal.WithLabelValues(endpoint.Address(), metrics.OutcomeDelivered).Inc()
	}

	return DeliveryResult{Address: endpoint.Address(), Err: err}
}

// Close releases endpoints holding connections.
func (broadcaster *Broadcaster) Close() {
	for _, endpoint := range broadcaster.endpoints {
		if closer, ok := endpoint.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
