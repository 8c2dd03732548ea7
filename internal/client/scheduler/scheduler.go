// Package scheduler decides when the sync engine runs.
//
// Automatic triggers are skipped while the storage mode is local. The
// interval and realtime triggers also go through a rate limiter; startup,
// reconnect, foreground and retries fire unthrottled. SyncNow bypasses
// both checks.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/realtime"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/logging"
	"golang.org/x/time/rate"
)

// Engine is the part of syncer.Engine the scheduler drives.
type Engine interface {
	SyncOfflineData(ctx context.Context) models.SyncResult
	StorageMode(ctx context.Context) models.StorageMode
}

// Status is satisfied by *network.StatusStore.
type Status interface {
	Online() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Feed is satisfied by *realtime.Listener.
type Feed interface {
	Run(ctx context.Context, onChange func(realtime.Change)) error
}

type Config struct {
	Interval   time.Duration
	RetryDelay time.Duration
	MaxRetries int
	// TriggerRate bounds automatic triggers per second; zero means no limit.
	TriggerRate  rate.Limit
	TriggerBurst int
}

func DefaultConfig() Config {
	return Config{
		Interval:     common.AutoSyncInterval,
		RetryDelay:   common.RetryDelay,
		MaxRetries:   common.MaxRetryAttempts,
		TriggerRate:  rate.Every(10 * time.Second),
		TriggerBurst: 3,
	}
}

type Scheduler struct {
	engine  Engine
	status  Status
	feed    Feed
	cfg     Config
	limiter *rate.Limiter
	log     logging.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	unsub   func()
	retry   *time.Timer
	wg      sync.WaitGroup

	// OnResult, when set, observes every finished cycle.
	OnResult func(reason string, res models.SyncResult)
}

// New builds a scheduler. feed may be nil.
func New(engine Engine, status Status, feed Feed, cfg Config, log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = common.AutoSyncInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = common.RetryDelay
	}
	limit, burst := cfg.TriggerRate, cfg.TriggerBurst
	if limit == 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Scheduler{
		engine:  engine,
		status:  status,
		feed:    feed,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		log:     log.With("module", "scheduler"),
	}
}

// Start installs the triggers and fires one initial sync. Starting a
// running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.unsub = s.status.Subscribe(s.onStatus)

	s.wg.Add(1)
	go s.tickLoop(s.ctx)

	if s.feed != nil {
		s.wg.Add(1)
		go s.feedLoop(s.ctx)
	}
	s.mu.Unlock()

	s.log.Info(ctx, "auto sync started", "interval", s.cfg.Interval.String())
	s.trigger("startup", 0, false)
}

// Stop removes every trigger and waits for running cycles to finish. An
// in-flight cycle is not cancelled. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info(context.Background(), "auto sync stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Foreground is called when the app returns to the foreground. It fires one
// sync when online and reports whether it did.
func (s *Scheduler) Foreground(ctx context.Context) bool {
	if !s.status.Online() {
		s.log.Debug(ctx, "foreground while offline, not syncing")
		return false
	}
	return s.trigger("foreground", 0, false)
}

// SyncNow runs one cycle synchronously. It ignores the rate limiter and the
// running state but is still subject to the engine's single-flight guard.
func (s *Scheduler) SyncNow(ctx context.Context) models.SyncResult {
	res := s.engine.SyncOfflineData(ctx)
	s.report(ctx, "manual", res)
	return res
}

func (s *Scheduler) onStatus(online bool) {
	if online {
		s.trigger("reconnect", 0, false)
	}
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.trigger("interval", 0, true)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) feedLoop(ctx context.Context) {
	defer s.wg.Done()
	err := s.feed.Run(ctx, func(c realtime.Change) {
		s.log.Debug(ctx, "remote change", "type", c.Type)
		s.trigger("realtime", 0, true)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn(ctx, "realtime feed stopped", "error", err)
	}
}

// trigger starts one automatic cycle in the background. attempt counts
// retries of a failed cycle. Only throttled triggers draw from the limiter.
func (s *Scheduler) trigger(reason string, attempt int, throttled bool) bool {
	s.mu.Lock()
	running, ctx := s.running, s.ctx
	s.mu.Unlock()
	if !running {
		return false
	}
	if s.engine.StorageMode(ctx) == models.StorageLocal {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	if throttled && !s.limiter.Allow() {
		s.log.Debug(ctx, "sync trigger throttled", "reason", reason)
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := s.engine.SyncOfflineData(ctx)
		s.report(ctx, reason, res)
		s.maybeRetry(res, attempt)
	}()
	return true
}

func (s *Scheduler) report(ctx context.Context, reason string, res models.SyncResult) {
	switch {
	case res.Reason != nil:
		s.log.Info(ctx, "sync skipped", "trigger", reason, "reason", res.Reason)
	case !res.Success:
		s.log.Warn(ctx, "sync finished with errors", "trigger", reason, "result", res.String())
	default:
		s.log.Debug(ctx, "sync finished", "trigger", reason, "result", res.String())
	}
	if s.OnResult != nil {
		s.OnResult(reason, res)
	}
}

// retryable reports whether a later attempt could succeed on its own.
// Offline cycles wait for the reconnect trigger instead.
func retryable(res models.SyncResult) bool {
	if res.Success {
		return false
	}
	switch {
	case errors.Is(res.Reason, common.ErrOffline),
		errors.Is(res.Reason, common.ErrLocalMode),
		errors.Is(res.Reason, common.ErrSyncInProgress),
		errors.Is(res.Reason, common.ErrNoUser),
		errors.Is(res.Reason, common.ErrNoRemote):
		return false
	}
	return true
}

func (s *Scheduler) maybeRetry(res models.SyncResult, attempt int) {
	if !retryable(res) || attempt >= s.cfg.MaxRetries {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	if s.retry != nil {
		s.retry.Stop()
	}
	next := attempt + 1
	s.retry = time.AfterFunc(s.cfg.RetryDelay, func() {
		s.trigger("retry", next, false)
	})
}
