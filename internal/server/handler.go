package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Mithilesh-1311/YANTRA/internal/collector"
	"github.com/Mithilesh-1311/YANTRA/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

const maxReadingSize = 64 * 1024

type Handler struct {
	logger hclog.Logger
	store  *collector.Store
}

func NewHandler(logger hclog.Logger, store *collector.Store) *Handler {
	return &Handler{
		logger: logger,
		store:  store,
	}
}

func (handler *Handler) Update(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxReadingSize))
	if err != nil {
		handler.logger.Error("error reading update", "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	reading, err := collector.DecodeReading(body)
	if err != nil {
		handler.logger.Debug("rejected update", "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		toJSON(ErrorResponse{Error: fmt.Sprintf("invalid reading: %s", err)}, rw)
		return
	}

	handler.store.Add(reading)
	metrics.CollectorReadingsTotal.WithLabelValues(reading.SiteId, "http").Inc()

	rw.WriteHeader(http.StatusOK)
	toJSON(StatusResponse{Status: "ok"}, rw)
}

func (handler *Handler) GetData(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	toJSON(handler.store.Snapshot(), rw)
}

func (handler *Handler) GetSiteData(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	siteId := getURLParameter(r, "siteId")
	latest, ok := handler.store.Latest(siteId)
	if !ok {
		rw.WriteHeader(http.StatusNotFound)
		toJSON(ErrorResponse{Error: fmt.Sprintf("no readings for %s", siteId)}, rw)
		return
	}

	rw.WriteHeader(http.StatusOK)
	toJSON(SiteDataResponse{Latest: latest, History: handler.store.History(siteId)}, rw)
}

func (handler *Handler) Health(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	toJSON(StatusResponse{Status: "ok"}, rw)
}

func getURLParameter(r *http.Request, parameter string) string {
	vars := mux.Vars(r)
	id := vars[parameter]
	return id
}
