// Package notify delivers user-facing notices such as "3 moments synced".
// Delivery failures are logged and never reach the caller.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/logmoments/internal/logging"
)

type Notification struct {
	Title string
	Body  string
}

// Sink is a delivery channel.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// Config mirrors the user's notification settings.
type Config struct {
	Enabled         bool
	MomentReminders bool
}

func DefaultConfig() Config {
	return Config{Enabled: true, MomentReminders: true}
}

func SyncedNotice(count int) Notification {
	plural := ""
	if count > 1 {
		plural = "s"
	}
	return Notification{
		Title: "Moments Synced",
		Body:  fmt.Sprintf("%d moment%s synced successfully.", count, plural),
	}
}

func CapturedNotice() Notification {
	return Notification{
		Title: "Moment Captured!",
		Body:  "Your moment has been saved successfully.",
	}
}

// Service applies Config and forwards notices to a Sink.
type Service struct {
	sink Sink
	log  logging.Logger

	mu  sync.RWMutex
	cfg Config
}

func NewService(sink Sink, cfg Config, log logging.Logger) *Service {
	return &Service{sink: sink, cfg: cfg, log: log.With("module", "notify")}
}

func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Service) SetConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Service) MomentsSynced(ctx context.Context, count int) {
	if count <= 0 || !s.Config().Enabled {
		return
	}
	s.send(ctx, SyncedNotice(count))
}

func (s *Service) MomentCaptured(ctx context.Context) {
	cfg := s.Config()
	if !cfg.Enabled || !cfg.MomentReminders {
		return
	}
	s.send(ctx, CapturedNotice())
}

func (s *Service) send(ctx context.Context, n Notification) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Deliver(ctx, n); err != nil {
		s.log.Warn(ctx, "failed to deliver notification", "title", n.Title, "error", err)
	}
}

// LogSink records notices in the application log.
type LogSink struct {
	log logging.Logger
}

func NewLogSink(log logging.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) Deliver(ctx context.Context, n Notification) error {
	s.log.Info(ctx, n.Title, "body", n.Body)
	return nil
}

// WriterSink prints notices as "Title: body" lines, e.g. to the terminal.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	format func(Notification) string
}

func NewWriterSink(w io.Writer, format func(Notification) string) *WriterSink {
	if format == nil {
		format = func(n Notification) string { return n.Title + ": " + n.Body }
	}
	return &WriterSink{w: w, format: format}
}

func (s *WriterSink) Deliver(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, s.format(n))
	return err
}
