package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/hashicorp/go-hclog"
	"github.com/nats-io/nats.go"
)

// NatsEndpoint publishes readings on <subject>.<site id>.
type NatsEndpoint struct {
	address string
	subject string
	conn    *nats.Conn
}

// NewNatsEndpoint connects in the background; a broker that is down at
// startup only turns its deliveries into logged failures.
func NewNatsEndpoint(address *url.URL, logger hclog.Logger) (*NatsEndpoint, error) {
	subject := strings.Trim(address.Path, "/")
	if subject == "" {
		subject = common.DEFAULT_NATS_SUBJECT
	}

	server := *address
	server.Path = ""
	natsLogger := logger.Named("nats").With("server", server.Host)

	conn, err := nats.Connect(server.String(),
		nats.Name("yantra-simulator"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			natsLogger.Warn("disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			natsLogger.Info("reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NatsEndpoint{
		address: address.String(),
		subject: subject,
		conn:    conn,
	}, nil
}

func (endpoint *NatsEndpoint) Address() string {
	return endpoint.address
}

func (endpoint *NatsEndpoint) Subject(siteId string) string {
	return fmt.Sprintf("%s.%s", endpoint.subject, siteId)
}

func (endpoint *NatsEndpoint) Deliver(ctx context.Context, reading model.TelemetryReading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !endpoint.conn.IsConnected() {
		return fmt.Errorf("not connected: %s", endpoint.conn.Status())
	}

	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	return endpoint.conn.Publish(endpoint.Subject(reading.SiteId), payload)
}

func (endpoint *NatsEndpoint) Close() {
	endpoint.conn.Close()
}
