package network

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeSource struct {
	name       string
	mu         sync.Mutex
	status     Status
	currentErr error
	watchErr   error
	fn         func(Status)
	stops      int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Current(context.Context) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.currentErr
}

func (f *fakeSource) Watch(_ context.Context, fn func(Status)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	f.fn = fn
	return func() {
		f.mu.Lock()
		f.stops++
		f.fn = nil
		f.mu.Unlock()
	}, nil
}

func (f *fakeSource) emit(st Status) {
	f.mu.Lock()
	f.status = st
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

func TestStatusStore_SubscribeAndUnsubscribe(t *testing.T) {
	s := NewStatusStore(true)

	var got []bool
	unsub := s.Subscribe(func(online bool) { got = append(got, online) })

	s.Set(true) // unchanged, no notification
	s.Set(false)
	s.Set(true)
	assert.Equal(t, []bool{false, true}, got)

	unsub()
	unsub()
	assert.Equal(t, 0, s.Subscribers())

	s.Set(false)
	assert.Len(t, got, 2)
	assert.False(t, s.Online())
}

func TestMonitor_InitializeReadsPrimary(t *testing.T) {
	store := NewStatusStore(true)
	primary := &fakeSource{name: "primary", status: Status{Connected: false, ConnectionType: "wifi"}}
	m := NewMonitor(store, primary, AssumeOnline(), logging.Nop())

	require.NoError(t, m.Initialize(context.Background()))
	assert.False(t, store.Online())
	assert.Equal(t, "wifi", m.ConnectionType())

	var events []bool
	m.AddListener(func(online bool) { events = append(events, online) })
	primary.emit(Status{Connected: true, ConnectionType: "cellular"})

	assert.True(t, store.Online())
	assert.Equal(t, []bool{true}, events)
	assert.Equal(t, "cellular", m.ConnectionType())
	assert.True(t, m.CurrentStatus(context.Background()))
}

func TestMonitor_InitializeIsIdempotent(t *testing.T) {
	primary := &fakeSource{name: "primary", status: Status{Connected: true}}
	m := NewMonitor(NewStatusStore(false), primary, nil, logging.Nop())

	require.NoError(t, m.Initialize(context.Background()))
	require.NoError(t, m.Initialize(context.Background()))

	m.Teardown()
	assert.Equal(t, 1, primary.stops)
}

func TestMonitor_FallsBackWhenPrimaryFails(t *testing.T) {
	store := NewStatusStore(false)
	primary := &fakeSource{name: "primary", currentErr: errors.New("no plugin")}
	m := NewMonitor(store, primary, AssumeOnline(), logging.Nop())

	require.NoError(t, m.Initialize(context.Background()))
	assert.True(t, store.Online())
	assert.Equal(t, ConnectionUnknown, m.ConnectionType())
}

func TestMonitor_BothSourcesFail(t *testing.T) {
	primary := &fakeSource{name: "primary", currentErr: errors.New("a")}
	fallback := &fakeSource{name: "fallback", status: Status{Connected: true}, watchErr: errors.New("b")}
	m := NewMonitor(NewStatusStore(false), primary, fallback, logging.Nop())

	err := m.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

func TestMonitor_TeardownCyclesRepeat(t *testing.T) {
	store := NewStatusStore(true)
	primary := &fakeSource{name: "primary", status: Status{Connected: true}}
	m := NewMonitor(store, primary, nil, logging.Nop())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, m.Initialize(ctx))

		calls := 0
		m.AddListener(func(bool) { calls++ })
		primary.emit(Status{Connected: false})
		primary.emit(Status{Connected: true})
		assert.Equal(t, 2, calls)

		m.Teardown()
		m.Teardown()
		assert.Equal(t, i, primary.stops)

		primary.emit(Status{Connected: false})
		assert.Equal(t, 2, calls, "listeners must be gone after teardown")
	}
}

func TestMonitor_CurrentStatusWithoutSource(t *testing.T) {
	m := NewMonitor(NewStatusStore(false), &fakeSource{name: "p"}, nil, logging.Nop())
	assert.False(t, m.CurrentStatus(context.Background()))
}

type probeFunc func(ctx context.Context) error

func (f probeFunc) Probe(ctx context.Context) error { return f(ctx) }

func TestProbeSource_CurrentAndWatch(t *testing.T) {
	var up atomic.Bool
	src := NewProbeSource("probe", probeFunc(func(context.Context) error {
		if up.Load() {
			return nil
		}
		return errors.New("down")
	}), 10*time.Millisecond)

	st, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Connected)

	seen := make(chan bool, 100)
	stop, err := src.Watch(context.Background(), func(st Status) { seen <- st.Connected })
	require.NoError(t, err)

	up.Store(true)
	require.Eventually(t, func() bool {
		select {
		case v := <-seen:
			return v
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	stop()
	stop()
}

func TestProbeSource_InvalidInterval(t *testing.T) {
	src := NewProbeSource("probe", probeFunc(func(context.Context) error { return nil }), 0)
	_, err := src.Watch(context.Background(), func(Status) {})
	require.Error(t, err)
}

func TestHTTPProber(t *testing.T) {
	var code atomic.Int32
	code.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(int(code.Load()))
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL)
	require.NoError(t, p.Probe(context.Background()))

	code.Store(http.StatusUnauthorized)
	require.NoError(t, p.Probe(context.Background()))

	code.Store(http.StatusBadGateway)
	require.Error(t, p.Probe(context.Background()))
}

func TestGRPCHealthProber(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	p, err := NewGRPCHealthProber(lis.Addr().String(), "")
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Probe(ctx))

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	require.Error(t, p.Probe(ctx))
}

func TestParseStatusFile(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "online\n", want: Status{Connected: true, ConnectionType: ConnectionUnknown}},
		{in: "ONLINE wifi", want: Status{Connected: true, ConnectionType: "wifi"}},
		{in: "offline wifi", want: Status{Connected: false, ConnectionType: "none"}},
		{in: "", wantErr: true},
		{in: "maybe", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseStatusFile(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFileSource_MissingFileFails(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "none"))
	_, err := src.Current(context.Background())
	require.Error(t, err)
}

func TestFileSource_WatchSeesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.status")
	require.NoError(t, os.WriteFile(path, []byte("offline"), 0o600))

	src := NewFileSource(path)
	st, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Connected)

	var online atomic.Bool
	stop, err := src.Watch(context.Background(), func(st Status) { online.Store(st.Connected) })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("online ethernet"), 0o600))
	require.Eventually(t, online.Load, 2*time.Second, 10*time.Millisecond)
}
