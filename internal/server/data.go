package server

import (
	"encoding/json"
	"io"

	"github.com/Mithilesh-1311/YANTRA/internal/model"
)

func toJSON(i interface{}, w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(i)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SiteDataResponse struct {
	Latest  model.TelemetryReading   `json:"latest"`
	History []model.TelemetryReading `json:"history"`
}
