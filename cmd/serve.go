package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/ingest"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/monitoring"
	"github.com/sells-group/visibility-cli/internal/pipeline"
	"github.com/sells-group/visibility-cli/internal/resilience"
	"github.com/sells-group/visibility-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.Enabled && env.Store != nil {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: buildRouter(serverDeps{
				cfg:      cfg,
				runner:   env.Pipeline,
				store:    env.Store,
				metrics:  env.Metrics,
				breakers: env.Breakers,
				timeout:  time.Duration(cfg.Server.TimeoutSecs) * time.Second,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runner executes one analysis.
type runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// serverDeps are the collaborators of the HTTP surface. store, metrics and
// breakers are optional.
type serverDeps struct {
	cfg      *config.Config
	runner   runner
	store    store.Store
	metrics  *metrics.Metrics
	breakers *resilience.Breakers
	timeout  time.Duration
}

// analyzeRequest is the POST /analyze body.
type analyzeRequest struct {
	Text            string   `json:"text"`
	ProviderName    string   `json:"provider_name,omitempty"`
	ProviderAliases []string `json:"provider_aliases,omitempty"`
	StoryID         string   `json:"story_id,omitempty"`
	Mode            string   `json:"mode,omitempty"`
	Models          []string `json:"models,omitempty"`
	SourceURL       string   `json:"source_url,omitempty"`
	ClientName      string   `json:"client_name,omitempty"`
}

// apiError is the JSON error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Mode    string `json:"mode,omitempty"`
}

// buildRouter wires the HTTP routes.
func buildRouter(d serverDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := d.cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = config.DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	if d.breakers != nil {
		r.Get("/health/circuits", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, d.breakers.Snapshot())
		})
	}

	if d.metrics != nil {
		r.Handle("/metrics", d.metrics.Handler())
	}

	r.Post("/analyze", d.handleAnalyze)

	if d.store != nil {
		r.Get("/runs", d.handleListRuns)
		r.Get("/runs/{id}", d.handleGetRun)
	}

	return r
}

// resolveMode applies the request mode or picks live when an OpenAI key is
// configured.
func (d serverDeps) resolveMode(requested string) (model.Mode, *apiError) {
	requested = model.NormalizeMode(requested)
	if requested == "" {
		if d.cfg.OpenAI.Key != "" {
			return model.ModeLive, nil
		}
		return model.ModeStub, nil
	}
	mode, err := model.ParseMode(requested)
	if err != nil {
		return "", &apiError{Code: "BAD_REQUEST", Message: err.Error()}
	}
	return mode, nil
}

func (d serverDeps) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Code: "BAD_REQUEST", Message: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Code: "BAD_REQUEST", Message: "text is required"})
		return
	}

	mode, apiErr := d.resolveMode(req.Mode)
	if apiErr != nil {
		writeJSON(w, http.StatusBadRequest, apiErr)
		return
	}

	if mode == model.ModeLive {
		models := config.Dedupe(req.Models)
		if len(models) == 0 {
			models = d.cfg.Model.Models()
		}
		if err := d.cfg.CheckCredentials(models, answer.ProviderFor); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Code: "MISSING_CREDENTIAL", Message: err.Error(), Mode: string(mode)})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.timeout)
	defer cancel()

	type result struct {
		out *pipeline.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := d.runner.Run(ctx, pipeline.Request{
			Text:            req.Text,
			StoryID:         req.StoryID,
			ProviderName:    req.ProviderName,
			ProviderAliases: req.ProviderAliases,
			Models:          req.Models,
			Mode:            mode,
			SourceURL:       req.SourceURL,
			ClientName:      req.ClientName,
		})
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			writeTimeout(w, d.timeout, mode)
		}
		return
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				writeTimeout(w, d.timeout, mode)
				return
			}
			status, body := classifyError(res.err, mode)
			zap.L().Error("analyze failed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("mode", string(mode)),
				zap.Error(res.err),
			)
			writeJSON(w, status, body)
			return
		}
		writeJSON(w, http.StatusOK, res.out.Payload)
	}
}

func writeTimeout(w http.ResponseWriter, timeout time.Duration, mode model.Mode) {
	writeJSON(w, http.StatusGatewayTimeout, apiError{
		Code:    "TIMEOUT",
		Message: fmt.Sprintf("Pipeline exceeded %s", timeout),
		Mode:    string(mode),
	})
}

// classifyError maps a pipeline error to a status and body.
func classifyError(err error, mode model.Mode) (int, apiError) {
	var (
		cfgErr  *ingest.ConfigurationError
		maskErr *ingest.MaskIntegrityError
		credErr *config.MissingCredentialError
		srcErr  *answer.SourceError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &maskErr):
		return http.StatusUnprocessableEntity, apiError{Code: "VALIDATION_ERROR", Message: err.Error(), Mode: string(mode)}
	case errors.As(err, &credErr):
		return http.StatusBadRequest, apiError{Code: "MISSING_CREDENTIAL", Message: err.Error(), Mode: string(mode)}
	case errors.As(err, &srcErr):
		return http.StatusBadGateway, apiError{Code: "ANSWER_SOURCE_ERROR", Message: err.Error(), Mode: string(mode)}
	default:
		return http.StatusInternalServerError, apiError{Code: "INTERNAL_ERROR", Message: err.Error(), Mode: string(mode)}
	}
}

func (d serverDeps) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:   model.RunStatus(q.Get("status")),
		StoryID:  q.Get("story_id"),
		Provider: q.Get("provider"),
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, apiError{Code: "BAD_REQUEST", Message: key + " must be a non-negative integer"})
				return
			}
			*dst = n
		}
	}

	runs, err := d.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, apiError{Code: "INTERNAL_ERROR", Message: "list runs failed"})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (d serverDeps) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := d.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, apiError{Code: "NOT_FOUND", Message: "run " + id + " not found"})
		return
	}
	if err != nil {
		zap.L().Error("get run failed", zap.String("run_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, apiError{Code: "INTERNAL_ERROR", Message: "get run failed"})
		return
	}

	phases, err := d.store.ListPhases(r.Context(), id)
	if err != nil {
		zap.L().Warn("list phases failed", zap.String("run_id", id), zap.Error(err))
		phases = []model.RunPhase{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "phases": phases})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
