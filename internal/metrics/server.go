package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Status is the progress snapshot served on /healthz.
type Status struct {
	lastBlock    atomic.Uint64
	lastCommitNs atomic.Int64
}

// MarkCommitted records a committed batch ending at block.
func (s *Status) MarkCommitted(block uint64) {
	s.lastBlock.Store(block)
	s.lastCommitNs.Store(time.Now().UnixNano())
	LastIndexedBlock.Set(float64(block))
}

type statusResponse struct {
	Status       string     `json:"status"`
	LastBlock    uint64     `json:"last_block"`
	LastCommitAt *time.Time `json:"last_commit_at,omitempty"`
}

func (s *Status) snapshot() statusResponse {
	resp := statusResponse{Status: "ok", LastBlock: s.lastBlock.Load()}
	if ns := s.lastCommitNs.Load(); ns > 0 {
		at := time.Unix(0, ns).UTC()
		resp.LastCommitAt = &at
	}
	return resp
}

// NewRouter exposes /healthz and /metrics.
func NewRouter(status *Status) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status.snapshot())
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return router
}

// Serve runs the status server until ctx is cancelled.
func Serve(ctx context.Context, addr string, status *Status, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(status),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
