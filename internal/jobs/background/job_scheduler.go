package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	ExpiryScanJob = "document-expiry-scan"
	ShareSweepJob = "share-link-sweep"

	// ExpiryHorizon matches the dashboard alert window.
	ExpiryHorizon = 30 * 24 * time.Hour
)

// Intervals configures how often each job runs. Zero disables a job.
type Intervals struct {
	ExpiryScan time.Duration
	ShareSweep time.Duration
}

// JobScheduler runs periodic maintenance over the portfolio store.
type JobScheduler struct {
	scheduler gocron.Scheduler
	store     repositories.Store
	logger    *zap.Logger
	now       func() time.Time
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

func NewJobScheduler(store repositories.Store, intervals Intervals, logger *zap.Logger) (*JobScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		store:     store,
		logger:    logger.Named("scheduler"),
		now:       time.Now,
		jobs:      make(map[string]gocron.Job),
	}
	if err := js.registerJobs(intervals); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(intervals Intervals) error {
	if intervals.ExpiryScan > 0 {
		if err := js.AddJob(ExpiryScanJob, intervals.ExpiryScan, func(ctx context.Context) error {
			_, err := js.ScanExpiringDocuments(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	if intervals.ShareSweep > 0 {
		if err := js.AddJob(ShareSweepJob, intervals.ShareSweep, func(ctx context.Context) error {
			_, err := js.SweepShareLinks(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// AddJob schedules task every interval. Runs never overlap.
func (js *JobScheduler) AddJob(name string, interval time.Duration, task func(ctx context.Context) error) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if _, exists := js.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := task(ctx); err != nil {
				js.logger.Error("job failed", zap.String("job", name), zap.Error(err))
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create job %s: %w", name, err)
	}
	js.jobs[name] = job
	return nil
}

// JobStatus describes one scheduled job.
type JobStatus struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run,omitempty"`
}

func (js *JobScheduler) GetJobStatus() []JobStatus {
	js.mu.RLock()
	defer js.mu.RUnlock()

	status := make([]JobStatus, 0, len(js.jobs))
	for name, job := range js.jobs {
		s := JobStatus{Name: name}
		if next, err := job.NextRun(); err == nil {
			s.NextRun = next
		}
		status = append(status, s)
	}
	sort.Slice(status, func(i, j int) bool { return status[i].Name < status[j].Name })
	return status
}

// ScanExpiringDocuments logs documents expiring within the horizon and
// returns their count per category.
func (js *JobScheduler) ScanExpiringDocuments(ctx context.Context) (map[models.DocumentCategory]int, error) {
	cutoff := js.now().Add(ExpiryHorizon)
	docs, err := js.store.Documents().ListExpiring(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.DocumentCategory]int)
	for _, d := range docs {
		counts[d.Category]++
		js.logger.Debug("document expiring",
			zap.String("document_id", d.ID.String()),
			zap.String("category", string(d.Category)),
			zap.Timep("expiry_date", d.ExpiryDate),
		)
	}
	js.logger.Info("document expiry scan completed",
		zap.Int("total", len(docs)),
		zap.Int("structure", counts[models.DocumentStructure]),
		zap.Int("property", counts[models.DocumentProperty]),
		zap.Int("tenant", counts[models.DocumentTenant]),
	)
	return counts, nil
}

// SweepShareLinks clears share tokens whose expiry has passed.
func (js *JobScheduler) SweepShareLinks(ctx context.Context) (int64, error) {
	cleared, err := js.store.Inspections().ClearExpiredShares(ctx, js.now())
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		js.logger.Info("expired share links cleared", zap.Int64("count", cleared))
	}
	return cleared, nil
}
