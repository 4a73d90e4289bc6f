package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(handler *Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/update", handler.Update).Methods(http.MethodPost)
	router.HandleFunc("/data", handler.GetData).Methods(http.MethodGet)
	router.HandleFunc("/data/{siteId}", handler.GetSiteData).Methods(http.MethodGet)
	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

// NewMetricsRouter serves only /metrics, for binaries without an API.
func NewMetricsRouter() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return router
}
