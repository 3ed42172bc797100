package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/dataset"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/pipeline"
	"feedback-insights-go/internal/ratelimit"
	"feedback-insights-go/internal/scoring"
	"feedback-insights-go/internal/validator"
)

func main() {
	log := logger.New()
	log.WithField("service", "feedback-insights-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	limiter := ratelimit.New(ratelimit.Limits{
		RequestsPerMinute:   cfg.RequestsPerMinute,
		TokensPerMinute:     cfg.TokensPerMinute,
		MaxTokensPerRequest: cfg.MaxTokensPerRequest,
		MaxBatchSize:        cfg.MaxBatchSize,
	})

	var scorer scoring.Scorer
	if cfg.UseMockScorer {
		log.Warn("using mock scorer, no real API calls will be made")
		scorer = scoring.NewMockScorer(limiter)
	} else {
		scorer = scoring.NewClient(cfg.APIKey, cfg.ModelName, cfg.MaxTokensPerRequest, limiter)
	}

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	// rate limiter window snapshot
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("status request")
		writeJSON(w, map[string]any{
			"model":       cfg.ModelName,
			"mock_scorer": cfg.UseMockScorer,
			"usage":       limiter.UsageStats(),
		})
	})

	// analyze endpoint: JSON rows in the body, or ?file= to read a
	// workbook from disk; ?output= additionally exports the result.
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "analyze")
		reqLog.Info("analyze request received")

		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}

		var table validator.Table
		if file := r.URL.Query().Get("file"); file != "" {
			var err error
			table, err = dataset.Load(file)
			if err != nil {
				reqLog.WithError(err).Warn("dataset load failed")
				http.Error(w, "dataset load failed: "+err.Error(), http.StatusBadRequest)
				return
			}
		} else {
			var err error
			table, err = tableFromBody(r)
			if err != nil {
				reqLog.WithError(err).Warn("bad request body")
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		reqLog = reqLog.WithField("rows", len(table.Rows))

		run := pipeline.New(cfg, scorer, limiter).WithProgress(func(pct int, stage string) {
			reqLog.WithField("progress", pct).WithField("stage", stage).Debug("pipeline progress")
		})

		start := time.Now()
		result, err := run.Run(r.Context(), table)
		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("pipeline finished")
		if err != nil {
			reqLog.WithError(err).Warn("pipeline returned error")
			status := http.StatusInternalServerError
			var verr *validator.ValidationError
			if errors.As(err, &verr) {
				status = http.StatusUnprocessableEntity
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}

		if out := r.URL.Query().Get("output"); out != "" {
			if err := dataset.WriteResult(out, result); err != nil {
				reqLog.WithError(err).Error("workbook export failed")
			} else {
				reqLog.WithField("output", out).Info("workbook exported")
			}
		}
		writeJSON(w, result)
	})

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RunDeadline + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

// analyzeRow is one inline comment in the request body. A nil NPS means the
// score is missing and will be inferred.
type analyzeRow struct {
	Comentario string   `json:"comentario"`
	NPS        *float64 `json:"nps,omitempty"`
	Fecha      string   `json:"fecha,omitempty"`
	ClienteID  string   `json:"cliente_id,omitempty"`
	Categoria  string   `json:"categoria,omitempty"`
	Canal      string   `json:"canal,omitempty"`
}

func tableFromBody(r *http.Request) (validator.Table, error) {
	var body struct {
		Rows []analyzeRow `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return validator.Table{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if len(body.Rows) == 0 {
		return validator.Table{}, fmt.Errorf("body carries no rows")
	}

	table := validator.Table{
		Columns: []string{"comentario", "nps", "fecha", "cliente_id", "categoria", "canal"},
		Rows:    make([][]string, 0, len(body.Rows)),
	}
	for _, row := range body.Rows {
		nps := ""
		if row.NPS != nil {
			nps = strconv.FormatFloat(*row.NPS, 'f', -1, 64)
		}
		table.Rows = append(table.Rows, []string{
			row.Comentario, nps, row.Fecha, row.ClienteID, row.Categoria, row.Canal,
		})
	}
	return table, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.New().WithComponent("api").WithError(err).Error("failed to write response")
	}
}
