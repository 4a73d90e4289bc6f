package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// StartHttpServer serves until ctx is done, then shuts down gracefully. It
// returns early only if the listener fails.
func StartHttpServer(ctx context.Context, logger hclog.Logger, addr string, defaultRouter http.Handler) error {
	// create a new server
	server := &http.Server{
		Addr:     addr,                                                  // configure the bind address
		Handler:  defaultRouter,                                         // set the default handler
		ErrorLog: logger.StandardLogger(&hclog.StandardLoggerOptions{}), // set the logger for the server
	}

	// start the server
	errChan := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Starting server on: %s", addr))

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Error starting server", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")

	// gracefully shutdown the server, waiting max 30 seconds for current operations to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
