package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/logmoments/internal/logging"
)

// Monitor reads connectivity from a primary Source, or from the fallback
// when the primary cannot be used, and publishes it to a StatusStore.
type Monitor struct {
	store    *StatusStore
	primary  Source
	fallback Source
	log      logging.Logger

	mu          sync.Mutex
	initialized bool
	active      Source
	stopWatch   func()
	connType    string
	nextID      int
	listeners   map[int]func(bool)
}

func NewMonitor(store *StatusStore, primary, fallback Source, log logging.Logger) *Monitor {
	return &Monitor{
		store:     store,
		primary:   primary,
		fallback:  fallback,
		log:       log.With("module", "network"),
		connType:  ConnectionUnknown,
		listeners: make(map[int]func(bool)),
	}
}

func (m *Monitor) Store() *StatusStore { return m.store }

// Initialize reads the current state once and subscribes for changes.
// Repeated calls are no-ops until Teardown.
func (m *Monitor) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	err := m.attach(ctx, m.primary)
	if err == nil {
		return nil
	}
	m.log.Warn(ctx, "primary connectivity source failed, using fallback", "source", m.primary.Name(), "error", err)

	if m.fallback == nil {
		m.mu.Lock()
		m.initialized = false
		m.mu.Unlock()
		return err
	}
	if ferr := m.attach(ctx, m.fallback); ferr != nil {
		m.mu.Lock()
		m.initialized = false
		m.mu.Unlock()
		return errors.Join(err, ferr)
	}
	return nil
}

func (m *Monitor) attach(ctx context.Context, src Source) error {
	if src == nil {
		return errors.New("no connectivity source")
	}
	st, err := src.Current(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", src.Name(), err)
	}
	m.update(ctx, st)

	stop, err := src.Watch(ctx, func(st Status) { m.update(ctx, st) })
	if err != nil {
		return fmt.Errorf("%s watch: %w", src.Name(), err)
	}

	m.mu.Lock()
	m.active = src
	m.stopWatch = stop
	m.mu.Unlock()

	m.log.Info(ctx, "network monitor initialized", "source", src.Name(), "online", st.Connected)
	return nil
}

func (m *Monitor) update(ctx context.Context, st Status) {
	m.mu.Lock()
	changed := m.store.Online() != st.Connected
	if st.ConnectionType != "" {
		m.connType = st.ConnectionType
	}
	listeners := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	if changed {
		m.log.Info(ctx, "network status changed", "online", st.Connected, "type", st.ConnectionType)
	}
	m.store.Set(st.Connected)
	for _, fn := range listeners {
		fn(st.Connected)
	}
}

// AddListener registers fn for every observation; the returned func removes it.
func (m *Monitor) AddListener(fn func(online bool)) (remove func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// CurrentStatus asks the active source directly and falls back to the
// cached flag when that fails or the monitor is not initialized.
func (m *Monitor) CurrentStatus(ctx context.Context) bool {
	m.mu.Lock()
	src := m.active
	m.mu.Unlock()

	if src == nil {
		return m.store.Online()
	}
	st, err := src.Current(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to read network status", "error", err)
		return m.store.Online()
	}
	return st.Connected
}

func (m *Monitor) ConnectionType() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connType
}

// Teardown stops the source subscription and drops every listener exactly
// once. The monitor can be initialized again afterwards.
func (m *Monitor) Teardown() {
	m.mu.Lock()
	stop := m.stopWatch
	m.stopWatch = nil
	m.active = nil
	m.listeners = make(map[int]func(bool))
	m.initialized = false
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
}
