package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/robfig/cron/v3"

	"shopledger/internal/platform/metrics"
)

const (
	JobSalarySync = "salary_sync"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ShopFunc runs one job for one shop and returns details worth keeping.
type ShopFunc func(ctx context.Context, shopName string) (any, error)

type Service struct {
	runs    RunStore
	metrics *metrics.Collector
	queue   chan job
	cron    *cron.Cron
}

type job struct {
	Type     string
	ShopName string
	Run      func(context.Context) (any, error)
}

func New(runs RunStore, collector *metrics.Collector) *Service {
	return &Service{
		runs:    runs,
		metrics: collector,
		queue:   make(chan job, 128),
		cron:    cron.New(),
	}
}

// Schedule runs fn for every shop on the given standard cron spec.
func (s *Service) Schedule(ctx context.Context, spec, jobType string, fn ShopFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.enqueueAllShops(ctx, jobType, fn)
	})
	return err
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

func (s *Service) Enqueue(jobType, shopName string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, ShopName: shopName, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType, "shop", shopName)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, shopName string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, ShopName: shopName, Run: run})
}

func (s *Service) ListRuns(ctx context.Context, shopName string, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runs.ListRuns(ctx, shopName, limit)
}

func (s *Service) enqueueAllShops(ctx context.Context, jobType string, fn ShopFunc) {
	shops, err := s.runs.ListShops(ctx)
	if err != nil {
		slog.Warn("scheduled job shop lookup failed", "jobType", jobType, "err", err)
		return
	}
	for _, shop := range shops {
		shop := shop
		s.Enqueue(jobType, shop, func(ctx context.Context) (any, error) {
			return fn(ctx, shop)
		})
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "shop", j.ShopName, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.runs.StartRun(ctx, j.ShopName, j.Type)
	if err != nil {
		slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		details = map[string]any{"error": err.Error(), "details": details}
	}
	s.metrics.JobFinished(j.Type, status)

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.runs.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}
