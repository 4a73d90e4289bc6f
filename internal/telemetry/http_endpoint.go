package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Mithilesh-1311/YANTRA/internal/model"
)

type HttpEndpoint struct {
	address string
	client  *http.Client
}

// NewHttpEndpoint posts readings to address. The deadline comes from the
// context handed to Deliver, not from the client.
func NewHttpEndpoint(address string) *HttpEndpoint {
	return &HttpEndpoint{
		address: address,
		client:  &http.Client{},
	}
}

func (endpoint *HttpEndpoint) Address() string {
	return endpoint.address
}

func (endpoint *HttpEndpoint) Deliver(ctx context.Context, reading model.TelemetryReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.address, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := endpoint.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("collector responded with status %d", response.StatusCode)
	}

	return nil
}
