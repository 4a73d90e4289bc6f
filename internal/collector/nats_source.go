package collector

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/metrics"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/hashicorp/go-hclog"
	"github.com/nats-io/nats.go"
)

// NatsSource feeds readings published by the simulator on <subject>.<site>
// into a Store.
type NatsSource struct {
	conn         *nats.Conn
	subscription *nats.Subscription
}

func NewNatsSource(url string, subject string, store *Store, logger hclog.Logger) (*NatsSource, error) {
	logger = logger.Named("nats")

	conn, err := nats.Connect(url,
		nats.Name("yantra-collector"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	subscription, err := conn.Subscribe(subject+".>", func(msg *nats.Msg) {
		reading, err := DecodeReading(msg.Data)
		if err != nil {
			logger.Warn("dropping malformed reading", "subject", msg.Subject, "error", err)
			return
		}
		store.Add(reading)
		metrics.CollectorReadingsTotal.WithLabelValues(reading.SiteId, "nats").Inc()
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	logger.Info(fmt.Sprintf("Subscribed to %s.>", subject))
	return &NatsSource{conn: conn, subscription: subscription}, nil
}

func (source *NatsSource) Close() {
	source.subscription.Unsubscribe()
	source.conn.Close()
}

// DecodeReading parses one pushed reading. A reading without a building id
// is rejected.
func DecodeReading(data []byte) (model.TelemetryReading, error) {
	var reading model.TelemetryReading
	if err := json.Unmarshal(data, &reading); err != nil {
		return reading, err
	}
	if reading.SiteId == "" {
		return reading, fmt.Errorf("missing building_id")
	}
	return reading, nil
}
