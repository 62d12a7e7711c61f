package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/call-pipeline/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ops API for backlog stats and on-demand runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := newOpsAPI(ctx, env.Store, env.Runner, cfg.Pipeline.BatchLimit)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			api.wait()
			return err
		})
		return g.Wait()
	},
}

// runner runs one backlog pass.
type runner interface {
	Run(ctx context.Context, limit int) (*model.RunStats, error)
}

// opsStore is the read side the API needs.
type opsStore interface {
	Ping(ctx context.Context) error
	BacklogStats(ctx context.Context) (*model.BacklogStats, error)
	GetRawMeeting(ctx context.Context, externalID string) (*model.RawMeeting, error)
}

// opsAPI serves stats and starts background runs, at most one at a time.
type opsAPI struct {
	store  opsStore
	runner runner
	limit  int

	// runs outlive the request that started them
	baseCtx context.Context

	mu      sync.Mutex
	running bool
	last    *lastRun
	wg      sync.WaitGroup
}

type lastRun struct {
	Stats *model.RunStats `json:"stats"`
	Error string          `json:"error,omitempty"`
}

func newOpsAPI(ctx context.Context, st opsStore, r runner, limit int) *opsAPI {
	return &opsAPI{store: st, runner: r, limit: limit, baseCtx: ctx}
}

func (a *opsAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", a.handleStats)
		r.Post("/runs", a.handleStartRun)
		r.Get("/runs/last", a.handleLastRun)
		r.Get("/meetings/{externalID}", a.handleMeeting)
	})
	return r
}

func (a *opsAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *opsAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.BacklogStats(r.Context())
	if err != nil {
		zap.L().Error("ops: backlog stats failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backlog stats failed"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *opsAPI) handleStartRun(w http.ResponseWriter, _ *http.Request) {
	if !a.startRun() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (a *opsAPI) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	last, running := a.last, a.running
	a.mu.Unlock()

	if last == nil {
		status := "none"
		if running {
			status = "running"
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"status": status})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (a *opsAPI) handleMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "externalID")
	m, err := a.store.GetRawMeeting(r.Context(), id)
	if err != nil {
		zap.L().Error("ops: get meeting failed", zap.String("external_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "meeting not found"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// startRun launches a run in the background. It reports false when a run
// is already in progress.
func (a *opsAPI) startRun() bool {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return false
	}
	a.running = true
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		stats, err := a.runner.Run(a.baseCtx, a.limit)

		res := &lastRun{Stats: stats}
		if err != nil {
			res.Error = err.Error()
			zap.L().Error("ops: run failed", zap.Error(err))
		}

		a.mu.Lock()
		a.running = false
		a.last = res
		a.mu.Unlock()
	}()
	return true
}

// wait blocks until a background run finishes.
func (a *opsAPI) wait() {
	a.wg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("ops: write response failed", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
