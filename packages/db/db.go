// Package db
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
	"github.com/Ciras-Inc/ciras-site/packages/metrics"
)

type Storage struct {
	DB  *pgxpool.Pool
	cfg Config
}

type Config struct {
	JobTimeout time.Duration
}

func New(ctx context.Context, databaseURL string, cfg Config) (*Storage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Storage{DB: pool, cfg: cfg}, nil
}

func (s *Storage) Close() {
	s.DB.Close()
}

func (s *Storage) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// LockJobs selects up to limit pending diagnosis rows and flips them to
// running inside one transaction, so concurrent workers never double-claim.
func (s *Storage) LockJobs(ctx context.Context, limit int) ([]domain.DiagnosisJob, error) {
	var jobs []domain.DiagnosisJob

	err := s.WithTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, url FROM diagnoses
			WHERE status = $1
			ORDER BY id
			LIMIT $2
			FOR UPDATE SKIP LOCKED`,
			string(domain.JobPending), limit)
		if err != nil {
			return fmt.Errorf("failed to lock jobs: %w", err)
		}

		var job domain.DiagnosisJob
		if _, err := pgx.ForEachRow(rows, []any{&job.ID, &job.URL}, func() error {
			jobs = append(jobs, job)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to iterate job rows: %w", err)
		}

		if len(jobs) == 0 {
			return nil
		}

		ids := make([]int64, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}
		_, err = tx.Exec(ctx, `
			UPDATE diagnoses SET status = $1, updated_at = now()
			WHERE id = ANY($2)`,
			string(domain.JobRunning), ids)
		if err != nil {
			return fmt.Errorf("failed to mark jobs running: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// SaveResult stores the finished CrawlResult as JSON and completes the job.
func (s *Storage) SaveResult(ctx context.Context, id int64, result *domain.CrawlResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal crawl result: %w", err)
	}

	start := time.Now()
	_, err = s.DB.Exec(ctx, `
		UPDATE diagnoses
		SET status = $1, result = $2, total_score = $3, error_msg = NULL, updated_at = now()
		WHERE id = $4`,
		string(domain.JobCompleted), payload, result.TotalScore, id)
	metrics.DBQueryDuration.WithLabelValues("save_result").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to save result for job %d: %w", id, err)
	}
	return nil
}

// MarkFailed records a fatal diagnosis failure with its user-facing message.
func (s *Storage) MarkFailed(ctx context.Context, id int64, msg string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE diagnoses
		SET status = $1, error_msg = $2, updated_at = now()
		WHERE id = $3`,
		string(domain.JobFailed), msg, id)
	if err != nil {
		return fmt.Errorf("failed to mark job %d failed: %w", id, err)
	}
	return nil
}

// ResetStalledJobs returns jobs stuck in running past the job timeout to the
// pending pool. Run by the reaper.
func (s *Storage) ResetStalledJobs(ctx context.Context) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE diagnoses
		SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < now() - make_interval(secs => $3)`,
		string(domain.JobPending), string(domain.JobRunning), s.cfg.JobTimeout.Seconds())
	if err != nil {
		return fmt.Errorf("failed to reset stalled jobs: %w", err)
	}
	if tag.RowsAffected() > 0 {
		slog.Info("Reset stalled diagnosis jobs", "count", tag.RowsAffected())
	}
	return nil
}

// RefreshPendingCount updates the queue-depth gauge.
func (s *Storage) RefreshPendingCount(ctx context.Context) error {
	var count int64
	err := s.DB.QueryRow(ctx, `SELECT count(*) FROM diagnoses WHERE status = $1`,
		string(domain.JobPending)).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count pending jobs: %w", err)
	}
	metrics.PendingJobs.Set(float64(count))
	return nil
}
