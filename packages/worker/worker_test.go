package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ciras-Inc/ciras-site/packages/config"
	"github.com/Ciras-Inc/ciras-site/packages/diagnosis"
	"github.com/Ciras-Inc/ciras-site/packages/domain"
	"github.com/Ciras-Inc/ciras-site/packages/fetcher"
)

// Mocks
type MockStore struct {
	mock.Mock
}

func (m *MockStore) LockJobs(ctx context.Context, limit int) ([]domain.DiagnosisJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DiagnosisJob), args.Error(1)
}

func (m *MockStore) SaveResult(ctx context.Context, id int64, result *domain.CrawlResult) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *MockStore) MarkFailed(ctx context.Context, id int64, msg string) error {
	args := m.Called(ctx, id, msg)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, url string) (*domain.CrawlResult, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CrawlResult), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, url string, result *domain.CrawlResult) error {
	args := m.Called(ctx, url, result)
	return args.Error(0)
}

func newTestWorker(storage Store, cache ResultCache) *Worker {
	cfg := config.Config{BatchSize: 10, MaxWorkers: 2}
	orch := diagnosis.New(fetcher.New(3*time.Second), diagnosis.StrategyBroad)
	return New(cfg, storage, cache, orch)
}

func TestProcessJobsCompletesSuccessfulDiagnosis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>ok page</title></head><body><p>hello</p></body></html>`))
	}))
	t.Cleanup(srv.Close)

	storage := new(MockStore)
	cache := new(MockCache)
	job := domain.DiagnosisJob{ID: 7, URL: srv.URL}

	storage.On("LockJobs", mock.Anything, 10).Return([]domain.DiagnosisJob{job}, nil)
	storage.On("SaveResult", mock.Anything, int64(7), mock.MatchedBy(func(r *domain.CrawlResult) bool {
		return r.Success && r.Title == "ok page"
	})).Return(nil)
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	w := newTestWorker(storage, cache)
	w.ProcessJobs(context.Background())

	storage.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestProcessJobsMarksUnreachableSiteFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	storage := new(MockStore)
	cache := new(MockCache)
	job := domain.DiagnosisJob{ID: 8, URL: srv.URL}

	storage.On("LockJobs", mock.Anything, 10).Return([]domain.DiagnosisJob{job}, nil)
	storage.On("MarkFailed", mock.Anything, int64(8), "could not reach the site").Return(nil)
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, nil)

	w := newTestWorker(storage, cache)
	w.ProcessJobs(context.Background())

	storage.AssertExpectations(t)
	storage.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessJobsServesFromCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	cached := &domain.CrawlResult{Success: true, Title: "cached result", TotalScore: 80}
	storage := new(MockStore)
	cache := new(MockCache)
	job := domain.DiagnosisJob{ID: 9, URL: srv.URL}

	storage.On("LockJobs", mock.Anything, 10).Return([]domain.DiagnosisJob{job}, nil)
	storage.On("SaveResult", mock.Anything, int64(9), cached).Return(nil)
	cache.On("Get", mock.Anything, mock.Anything).Return(cached, nil)

	w := newTestWorker(storage, cache)
	w.ProcessJobs(context.Background())

	storage.AssertExpectations(t)
	assert.Equal(t, int64(0), hits.Load(), "a cache hit must not crawl")
}

func TestProcessJobsEmptyBatchIsQuiet(t *testing.T) {
	storage := new(MockStore)
	storage.On("LockJobs", mock.Anything, 10).Return([]domain.DiagnosisJob{}, nil)

	w := newTestWorker(storage, new(MockCache))
	w.ProcessJobs(context.Background())

	storage.AssertExpectations(t)
}

func TestPublishResultRetriesUntilAccepted(t *testing.T) {
	var calls atomic.Int64
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(callback.Close)

	cfg := config.Config{CallbackURL: callback.URL}
	w := &Worker{cfg: cfg, httpClient: &http.Client{Timeout: time.Second}}

	err := w.publishResult(context.Background(), domain.DiagnosisJob{ID: 1}, &domain.CrawlResult{Success: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}
