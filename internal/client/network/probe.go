package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Prober answers "can the backend be reached right now". A nil error means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeSource polls a Prober on a fixed interval.
type ProbeSource struct {
	name     string
	prober   Prober
	interval time.Duration
	timeout  time.Duration
}

func NewProbeSource(name string, p Prober, interval time.Duration) *ProbeSource {
	timeout := interval / 2
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &ProbeSource{name: name, prober: p, interval: interval, timeout: timeout}
}

func (s *ProbeSource) Name() string { return s.name }

func (s *ProbeSource) Current(ctx context.Context) (Status, error) {
	if s.prober == nil {
		return Status{}, errors.New("no prober configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return Status{Connected: s.prober.Probe(ctx) == nil, ConnectionType: s.name}, nil
}

func (s *ProbeSource) Watch(ctx context.Context, fn func(Status)) (func(), error) {
	if s.interval <= 0 {
		return nil, fmt.Errorf("invalid probe interval %s", s.interval)
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st, err := s.Current(ctx)
				if err != nil || ctx.Err() != nil {
					continue
				}
				fn(st)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// GRPCHealthProber calls the standard grpc.health.v1 Check RPC.
type GRPCHealthProber struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string
}

func NewGRPCHealthProber(target, service string) (*GRPCHealthProber, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &GRPCHealthProber{conn: conn, client: healthpb.NewHealthClient(conn), service: service}, nil
}

func (p *GRPCHealthProber) Probe(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health status %s", resp.GetStatus())
	}
	return nil
}

func (p *GRPCHealthProber) Close() error {
	return p.conn.Close()
}

// HTTPProber sends HEAD to a URL; any response below 500 counts as reachable.
type HTTPProber struct {
	client *resty.Client
	url    string
}

func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{client: resty.New(), url: url}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Head(p.url)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("probe %s: %s", p.url, resp.Status())
	}
	return nil
}
