package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"leaves-cms/pkg/logger"
)

// Scheduler runs fire-and-forget tasks on a small worker pool. The comment
// pipeline hands admin notifications to it so request handlers never block
// on SMTP.
type Scheduler struct {
	config Config

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	queue chan queuedTask

	workerWG sync.WaitGroup
	taskWG   sync.WaitGroup
}

type Config struct {
	WorkerCount int
	QueueSize   int
}

type Task struct {
	Name    string
	Run     func(ctx context.Context) error
	Timeout time.Duration

	// MaxRetries counts re-runs after the first failure; Backoff is the
	// delay before each retry.
	MaxRetries int
	Backoff    time.Duration
}

type queuedTask struct {
	task    Task
	attempt int
	delay   time.Duration
}

var (
	ErrNotStarted   = errors.New("scheduler not started")
	errShuttingDown = errors.New("scheduler is shutting down")
)

var (
	metricsOnce       sync.Once
	taskRunsTotal     *prometheus.CounterVec
	taskDurationSecs  *prometheus.HistogramVec
	taskLastSuccessTS *prometheus.GaugeVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		taskRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaves_cms",
			Subsystem: "background",
			Name:      "task_runs_total",
			Help:      "Total background task executions",
		}, []string{"task", "status"})

		taskDurationSecs = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leaves_cms",
			Subsystem: "background",
			Name:      "task_duration_seconds",
			Help:      "Duration of background task executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"})

		taskLastSuccessTS = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "leaves_cms",
			Subsystem: "background",
			Name:      "task_last_success_timestamp",
			Help:      "Unix timestamp of the last successful run per task",
		}, []string{"task"})
	})
}

func NewScheduler(cfg Config) *Scheduler {
	initMetrics()

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}

	return &Scheduler{
		config: cfg,
		queue:  make(chan queuedTask, cfg.QueueSize),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for i := 0; i < s.config.WorkerCount; i++ {
		s.workerWG.Add(1)
		go s.worker()
	}
}

// Schedule queues the task for execution. It fails fast when the scheduler
// has not been started or is shutting down.
func (s *Scheduler) Schedule(task Task) error {
	if task.Name == "" {
		return errors.New("task name is required")
	}
	if task.Run == nil {
		return errors.New("task runner is required")
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	if !s.enqueue(queuedTask{task: task, attempt: 1}) {
		return errShuttingDown
	}
	return nil
}

func (s *Scheduler) worker() {
	defer s.workerWG.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.queue:
			s.execute(task)
		}
	}
}

func (s *Scheduler) execute(queued queuedTask) {
	if queued.delay > 0 {
		timer := time.NewTimer(queued.delay)
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
			return
		}
	}

	s.taskWG.Add(1)
	defer s.taskWG.Done()

	err := s.run(queued)
	if err == nil {
		logger.Debug("Background task completed", map[string]interface{}{
			"task": queued.task.Name, "attempt": queued.attempt})
		return
	}

	if s.shouldRetry(queued, err) {
		retry := queued
		retry.attempt++
		retry.delay = queued.task.Backoff
		if !s.enqueue(retry) {
			logger.Warn("Background task dropped during shutdown",
				map[string]interface{}{"task": queued.task.Name})
		}
		return
	}

	logger.Error(err, "Background task failed", map[string]interface{}{
		"task": queued.task.Name, "attempt": queued.attempt})
}

func (s *Scheduler) run(queued queuedTask) (runErr error) {
	start := time.Now()
	status := "success"

	ctx := s.ctx
	if queued.task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queued.task.Timeout)
		defer cancel()
	}

	defer func() {
		taskDurationSecs.WithLabelValues(queued.task.Name).Observe(time.Since(start).Seconds())
		taskRunsTotal.WithLabelValues(queued.task.Name, status).Inc()
		if status == "success" {
			taskLastSuccessTS.WithLabelValues(queued.task.Name).Set(float64(time.Now().Unix()))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
			status = "failure"
		}
	}()

	runErr = queued.task.Run(ctx)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			status = "canceled"
		} else {
			status = "failure"
		}
	}
	return runErr
}

func (s *Scheduler) shouldRetry(queued queuedTask, err error) bool {
	if queued.task.MaxRetries <= 0 {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return queued.attempt <= queued.task.MaxRetries
}

func (s *Scheduler) enqueue(task queuedTask) bool {
	select {
	case <-s.ctx.Done():
		return false
	case s.queue <- task:
		return true
	}
}

// Shutdown stops the workers and waits for in-flight tasks, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		s.taskWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
