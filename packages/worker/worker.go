// Package worker
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ciras-Inc/ciras-site/packages/config"
	"github.com/Ciras-Inc/ciras-site/packages/diagnosis"
	"github.com/Ciras-Inc/ciras-site/packages/domain"
	"github.com/Ciras-Inc/ciras-site/packages/metrics"
	"github.com/Ciras-Inc/ciras-site/packages/retry"
)

// Consumer-side interfaces
type Store interface {
	LockJobs(ctx context.Context, limit int) ([]domain.DiagnosisJob, error)
	SaveResult(ctx context.Context, id int64, result *domain.CrawlResult) error
	MarkFailed(ctx context.Context, id int64, msg string) error
}

type ResultCache interface {
	Get(ctx context.Context, normalizedURL string) (*domain.CrawlResult, error)
	Set(ctx context.Context, normalizedURL string, result *domain.CrawlResult) error
}

type Worker struct {
	cfg             config.Config
	storage         Store
	cache           ResultCache
	orch            *diagnosis.Orchestrator
	httpClient      *http.Client
	callbackBackoff time.Duration
}

func New(cfg config.Config, storage Store, cache ResultCache, orch *diagnosis.Orchestrator) *Worker {
	return &Worker{
		cfg:             cfg,
		storage:         storage,
		cache:           cache,
		orch:            orch,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		callbackBackoff: 2 * time.Second,
	}
}

// ProcessJobs locks one batch of pending diagnoses and runs them under a
// bounded errgroup. A job's failure is logged and recorded on its own row;
// it never affects the rest of the batch.
func (w *Worker) ProcessJobs(ctx context.Context) {
	jobs, err := w.storage.LockJobs(ctx, w.cfg.BatchSize)
	if err != nil {
		slog.Error("Failed to lock jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	slog.Info("Locked and dispatched jobs", "count", len(jobs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.MaxWorkers)

	for _, job := range jobs {
		g.Go(func() error {
			if err := w.processJob(gCtx, job); err != nil {
				slog.Error("Diagnosis job failed", "job_id", job.ID, "url", job.URL, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("Finished processing batch", "count", len(jobs))
}

func (w *Worker) processJob(ctx context.Context, job domain.DiagnosisJob) error {
	cacheKey := ""
	if normalized, err := diagnosis.NormalizeURL(job.URL); err == nil {
		cacheKey = normalized
	}

	if w.cache != nil && cacheKey != "" {
		cached, err := w.cache.Get(ctx, cacheKey)
		if err != nil {
			slog.Warn("Result cache lookup failed", "url", cacheKey, "error", err)
		} else if cached != nil {
			metrics.CacheHits.Inc()
			metrics.DiagnosesTotal.WithLabelValues("cached").Inc()
			return w.storage.SaveResult(ctx, job.ID, cached)
		}
	}

	result := w.orch.Diagnose(ctx, job.URL)

	if !result.Success {
		metrics.DiagnosesTotal.WithLabelValues("failed").Inc()
		return w.storage.MarkFailed(ctx, job.ID, result.Error)
	}

	metrics.DiagnosesTotal.WithLabelValues("completed").Inc()
	metrics.TotalScoreDistribution.Observe(float64(result.TotalScore))

	if err := w.storage.SaveResult(ctx, job.ID, result); err != nil {
		return err
	}

	if w.cache != nil && cacheKey != "" {
		if err := w.cache.Set(ctx, cacheKey, result); err != nil {
			slog.Warn("Result cache write failed", "url", cacheKey, "error", err)
		}
	}

	if w.cfg.CallbackURL != "" {
		if err := w.publishResult(ctx, job, result); err != nil {
			// The result is already persisted; the narrative step can poll.
			slog.Error("Result callback failed", "job_id", job.ID, "error", err)
		}
	}
	return nil
}

// publishResult notifies the narrative-generation service that a diagnosis
// is ready, retrying with a fixed backoff.
func (w *Worker) publishResult(ctx context.Context, job domain.DiagnosisJob, result *domain.CrawlResult) error {
	payload, err := json.Marshal(struct {
		JobID  int64               `json:"jobId"`
		Result *domain.CrawlResult `json:"result"`
	}{JobID: job.ID, Result: result})
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	return retry.Do(ctx, 3, w.callbackBackoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.CallbackURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("callback returned status %d", resp.StatusCode)
		}
		return nil
	})
}
