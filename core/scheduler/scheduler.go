package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"backoffice/core/logger"

	"github.com/robfig/cron/v3"
)

// CronTask is a named job run on a standard five-field cron schedule
type CronTask struct {
	Name        string
	Description string
	CronExpr    string
	Handler     func(ctx context.Context) error
	Enabled     bool
}

// TaskStatus reports the last run of a task
type TaskStatus struct {
	Name      string    `json:"name"`
	CronExpr  string    `json:"cron_expr"`
	Enabled   bool      `json:"enabled"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
}

type taskEntry struct {
	task    *CronTask
	entryID cron.EntryID
	running bool
	lastRun time.Time
	lastErr error
}

// CronScheduler runs CronTasks; overlapping runs of the same task are skipped
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	tasks   map[string]*taskEntry
	logger  logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, logger.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, logger.Err(err), logger.Any("details", keysAndValues))
}

func NewCronScheduler(log logger.Logger) *CronScheduler {
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		tasks:  make(map[string]*taskEntry),
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterTask validates and schedules a task. Disabled tasks are kept for
// RunNow but never scheduled.
func (s *CronScheduler) RegisterTask(task *CronTask) error {
	if task == nil || task.Name == "" {
		return errors.New("task name is required")
	}
	if task.Handler == nil {
		return fmt.Errorf("task %s has no handler", task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.Name]; exists {
		return fmt.Errorf("task %s already registered", task.Name)
	}

	entry := &taskEntry{task: task}
	if task.Enabled {
		id, err := s.cron.AddFunc(task.CronExpr, func() { s.run(entry) })
		if err != nil {
			return fmt.Errorf("invalid cron expression %q for task %s: %w", task.CronExpr, task.Name, err)
		}
		entry.entryID = id
	}
	s.tasks[task.Name] = entry

	s.logger.Info("Registered cron task",
		logger.String("task", task.Name),
		logger.String("cron", task.CronExpr),
		logger.Bool("enabled", task.Enabled))
	return nil
}

// RunNow runs a registered task synchronously
func (s *CronScheduler) RunNow(name string) error {
	s.mu.Lock()
	entry, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %s not found", name)
	}
	return s.run(entry)
}

func (s *CronScheduler) run(entry *taskEntry) error {
	s.mu.Lock()
	if entry.running {
		s.mu.Unlock()
		s.logger.Warn("Skipping cron task, previous run still active", logger.String("task", entry.task.Name))
		return nil
	}
	entry.running = true
	s.mu.Unlock()

	start := time.Now()
	err := entry.task.Handler(s.ctx)

	s.mu.Lock()
	entry.running = false
	entry.lastRun = start
	entry.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Cron task failed",
			logger.String("task", entry.task.Name),
			logger.Duration("duration", time.Since(start)),
			logger.Err(err))
		return err
	}
	s.logger.Info("Cron task finished",
		logger.String("task", entry.task.Name),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// Status lists all tasks sorted by name
func (s *CronScheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, 0, len(s.tasks))
	for _, entry := range s.tasks {
		st := TaskStatus{
			Name:     entry.task.Name,
			CronExpr: entry.task.CronExpr,
			Enabled:  entry.task.Enabled,
			Running:  entry.running,
			LastRun:  entry.lastRun,
		}
		if entry.lastErr != nil {
			st.LastError = entry.lastErr.Error()
		}
		if entry.entryID != 0 {
			st.NextRun = s.cron.Entry(entry.entryID).Next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *CronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("Cron scheduler started", logger.Int("tasks", len(s.tasks)))
}

// Stop cancels running handlers and waits for them to return
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Cron scheduler stopped")
}
