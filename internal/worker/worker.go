// Package worker runs comparison jobs received from the event bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/baobab/internal/compare"
	"github.com/opensource-finance/baobab/internal/domain"
	"github.com/opensource-finance/baobab/internal/observability"
	"github.com/opensource-finance/baobab/internal/outlook"
)

// Worker consumes comparison jobs, stores the results and announces them.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	cache    domain.Cache
	comparer *compare.Comparer
	outlook  *outlook.Processor
	metrics  *observability.Metrics
	logger   *slog.Logger

	resultTTL time.Duration

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// ResultTTL is how long finished results stay in the cache.
	ResultTTL time.Duration
}

// NewWorker creates a new async worker. repo, cache and metrics may be nil.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, comparer *compare.Comparer, processor *outlook.Processor, metrics *observability.Metrics, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		cache:    cache,
		comparer: comparer,
		outlook:  processor,
		metrics:  metrics,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the comparison request topic.
func (w *Worker) Start(cfg Config) error {
	w.resultTTL = cfg.ResultTTL
	if w.resultTTL <= 0 {
		w.resultTTL = time.Hour
	}

	sub, err := w.bus.Subscribe(w.ctx, domain.TopicComparisonRequested, w.processComparison)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicComparisonRequested, err)
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	w.logger.Info("worker started",
		"topic", domain.TopicComparisonRequested,
	)
	return nil
}

// processComparison runs one job end to end. The stored comparison takes the
// job ID so that the client that queued it can fetch the result.
func (w *Worker) processComparison(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var job domain.ComparisonJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		w.logger.Error("failed to parse comparison job",
			"message_id", msg.ID,
			"error", err,
		)
		w.observeJob("error")
		return err
	}
	if job.JobID == "" {
		job.JobID = msg.ID
	}

	w.logger.Debug("processing comparison job",
		"job_id", job.JobID,
		"trace_id", job.TraceID,
		"region", job.Request.RegionID,
		"crop", job.Request.CropID,
	)

	result, err := w.comparer.Compare(ctx, job.Request)
	if err != nil {
		w.logger.Error("comparison failed",
			"job_id", job.JobID,
			"error", err,
		)
		w.observeJob("error")
		return err
	}
	result.ID = job.JobID

	if w.repo != nil {
		if err := w.repo.SaveComparison(ctx, result); err != nil {
			w.logger.Error("failed to save comparison",
				"job_id", job.JobID,
				"error", err,
			)
			w.observeJob("error")
			return err
		}
	}

	if w.cache != nil {
		if err := w.cache.SetComparison(ctx, job.Request.CacheKey(), result, w.resultTTL); err != nil {
			w.logger.Warn("failed to cache comparison",
				"job_id", job.JobID,
				"error", err,
			)
		}
	}

	o := w.outlook.Summarize(result)
	if err := PublishResult(ctx, w.bus, w.metrics, job.JobID, result, o); err != nil {
		w.logger.Error("failed to publish comparison result",
			"job_id", job.JobID,
			"error", err,
		)
	}

	w.observeJob("ok")
	w.logger.Info("comparison job processed",
		"job_id", job.JobID,
		"region", result.RegionID,
		"crop", result.CropID,
		"cells", len(result.Cells),
		"failed_cells", result.Failed(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *Worker) observeJob(outcome string) {
	if w.metrics != nil {
		w.metrics.JobsProcessed.WithLabelValues(outcome).Inc()
	}
}

// PublishResult announces a finished comparison on TopicComparisonCompleted,
// and on TopicSevereRisk when any scenario reached the Severe tier.
func PublishResult(ctx context.Context, bus domain.EventBus, metrics *observability.Metrics, jobID string, result *domain.ComparisonResult, o *outlook.Outlook) error {
	payload, err := json.Marshal(outlook.NewEvent(jobID, result, o))
	if err != nil {
		return fmt.Errorf("failed to encode comparison event: %w", err)
	}

	if err := bus.Publish(ctx, domain.TopicComparisonCompleted, payload); err != nil {
		return fmt.Errorf("failed to publish completion: %w", err)
	}

	if outlook.ShouldAlert(o) {
		if metrics != nil {
			metrics.SevereAlerts.Inc()
		}
		if err := bus.Publish(ctx, domain.TopicSevereRisk, payload); err != nil {
			return fmt.Errorf("failed to publish severe alert: %w", err)
		}
	}
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.logger.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
