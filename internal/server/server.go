// Package server exposes curtain builds over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"geocurtain/internal/curtain"
	"geocurtain/internal/geom"
	"geocurtain/internal/logging"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxBodyBytes = 16 << 20

type Server struct {
	svc     *curtain.Service
	policy  geom.ExtractPolicy
	metrics http.Handler
	log     logging.Logger

	// requests numbers build scopes so concurrent callers never
	// supersede each other's boundaries
	requests atomic.Uint64
}

// New wires the API. metrics may be nil to leave /metrics out.
func New(svc *curtain.Service, policy geom.ExtractPolicy, metrics http.Handler, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{svc: svc, policy: policy, metrics: metrics, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/curtains", s.handleCurtains)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", logging.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info(ctx, "http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleCurtains(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("geocurtain/server").Start(r.Context(), "POST /v1/curtains")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "read body"))
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		return
	}
	d, err := geom.ParseGeo(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	bs, diags := geom.Extract(d, s.policy)
	all := append(append([]geom.Diagnostic{}, d.Diagnostics...), diags...)
	notes := make([]string, 0, len(all))
	for _, dg := range all {
		s.log.Warn(ctx, "boundary skipped", logging.Int("feature", dg.Feature), logging.String("kind", dg.Kind), logging.Err(dg.Err))
		notes = append(notes, dg.String())
	}
	span.SetAttributes(attribute.Int("boundaries", len(bs)), attribute.Int("diagnostics", len(notes)))

	scope := "request-" + strconv.FormatUint(s.requests.Add(1), 10)
	results := s.svc.BuildAll(curtain.WithScope(ctx, scope), bs)
	writeJSON(w, http.StatusOK, curtain.NewDocument(results, notes))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
