package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/config"
	"github.com/dmitrijs2005/logmoments/internal/client/network"
	"github.com/dmitrijs2005/logmoments/internal/client/notify"
	"github.com/dmitrijs2005/logmoments/internal/client/photos"
	"github.com/dmitrijs2005/logmoments/internal/client/realtime"
	"github.com/dmitrijs2005/logmoments/internal/client/remote"
	"github.com/dmitrijs2005/logmoments/internal/client/scheduler"
	"github.com/dmitrijs2005/logmoments/internal/client/services"
	"github.com/dmitrijs2005/logmoments/internal/client/staging"
	"github.com/dmitrijs2005/logmoments/internal/client/store"
	"github.com/dmitrijs2005/logmoments/internal/client/syncer"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/filex"
	"github.com/dmitrijs2005/logmoments/internal/logging"
	"golang.org/x/time/rate"
)

// Runtime owns every long-lived component of the client.
type Runtime struct {
	Config *config.Config
	Log    logging.Logger

	Store     *store.Store
	Staging   *staging.Buffer
	Auth      services.AuthService
	Moments   services.MomentService
	Notify    *notify.Service
	Remote    remote.Table
	RemoteDB  *sql.DB
	Photos    photos.ObjectStore
	Status    *network.StatusStore
	Monitor   *network.Monitor
	Engine    *syncer.Engine
	Scheduler *scheduler.Scheduler

	closers []io.Closer
}

// NewRuntime builds the component graph from cfg. Nothing is opened and no
// goroutine is started until Open and Start.
func NewRuntime(ctx context.Context, cfg *config.Config, notices io.Writer) (*Runtime, error) {
	slogger, logCloser := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogPath(),
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	rt := &Runtime{Config: cfg, Log: slogger, closers: []io.Closer{logCloser}}

	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, rt.fail(err)
	}

	rt.Store = store.New(cfg.DBPath(), rt.Log)

	kv, err := staging.NewFileKV(cfg.StagingPath())
	if err != nil {
		return nil, rt.fail(err)
	}
	rt.Staging = staging.NewBuffer(kv)
	rt.Auth = services.NewAuthService(rt.Store, rt.Log)

	var sink notify.Sink = notify.NewLogSink(rt.Log)
	if notices != nil {
		sink = notify.NewWriterSink(notices, nil)
	}
	ncfg := notify.DefaultConfig()
	ncfg.Enabled = cfg.Notifications
	rt.Notify = notify.NewService(sink, ncfg, rt.Log)

	if err := rt.buildRemote(); err != nil {
		return nil, rt.fail(err)
	}
	if cfg.PhotosEnabled() {
		s3, err := photos.NewS3Store(ctx, photos.S3Config{
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.S3Bucket,
			PresignTTL: cfg.S3PresignTTL,
		})
		if err != nil {
			return nil, rt.fail(err)
		}
		rt.Photos = s3
	}

	rt.Status = network.NewStatusStore(true)
	primary, err := rt.probe()
	if err != nil {
		return nil, rt.fail(err)
	}
	rt.Monitor = network.NewMonitor(rt.Status, primary, network.AssumeOnline(), rt.Log)

	rt.Engine = syncer.New(syncer.Deps{
		Store:    rt.Store,
		Remote:   rt.Remote,
		Auth:     rt.Auth,
		Network:  rt.Status,
		Notifier: rt.Notify,
		Photos:   rt.Photos,
		Log:      rt.Log,
	})

	var feed scheduler.Feed
	if cfg.RealtimeURL != "" {
		l := realtime.NewListener(cfg.RealtimeURL, cfg.RESTAPIKey, rt.Auth, rt.Log)
		l.SetReconnectDelay(cfg.RealtimeReconnect)
		feed = l
	}
	rt.Scheduler = scheduler.New(rt.Engine, rt.Status, feed, scheduler.Config{
		Interval:     cfg.SyncInterval,
		RetryDelay:   cfg.RetryDelay,
		MaxRetries:   cfg.MaxRetries,
		TriggerRate:  rate.Every(cfg.TriggerInterval),
		TriggerBurst: cfg.TriggerBurst,
	}, rt.Log)

	rt.Moments = services.NewMomentService(services.MomentDeps{
		Store:    rt.Store,
		Staging:  rt.Staging,
		Syncer:   rt.Engine,
		Users:    rt.Auth,
		Network:  rt.Status,
		Notifier: rt.Notify,
		Log:      rt.Log,
	})
	return rt, nil
}

func (rt *Runtime) buildRemote() error {
	cfg := rt.Config
	switch cfg.RemoteBackend {
	case config.BackendPostgres:
		db, err := remote.OpenPostgres(cfg.RemoteDSN)
		if err != nil {
			return err
		}
		rt.RemoteDB = db
		rt.closers = append(rt.closers, db)
		rt.Remote = remote.NewPostgresTable(db)
	case config.BackendREST:
		rt.Remote = remote.NewRESTTable(cfg.RESTURL, cfg.RESTAPIKey, rt.Auth)
	}
	return nil
}

func (rt *Runtime) probe() (network.Source, error) {
	cfg := rt.Config
	switch cfg.ProbeKind {
	case config.ProbeGRPC:
		p, err := network.NewGRPCHealthProber(cfg.ProbeTarget, "")
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, p)
		return network.NewProbeSource("grpc", p, cfg.OnlineCheckInterval), nil
	case config.ProbeHTTP:
		return network.NewProbeSource("http", network.NewHTTPProber(cfg.ProbeTarget), cfg.OnlineCheckInterval), nil
	case config.ProbeFile:
		return network.NewFileSource(cfg.StatusFile), nil
	default:
		return network.AssumeOnline(), nil
	}
}

// Open opens the local store, binds the signed-in user and imports moments
// staged while the store was down. A store that cannot be opened for reasons
// other than a failed migration is logged and left closed, so capture falls
// back to the staging buffer.
func (rt *Runtime) Open(ctx context.Context) error {
	if err := rt.Store.Open(ctx); err != nil {
		if errors.Is(err, common.ErrMigration) {
			return err
		}
		rt.Log.Error(ctx, "local store unavailable, capturing to staging", "error", err)
		return nil
	}

	if id, err := rt.Auth.CurrentUserID(ctx); err == nil {
		if err := rt.Engine.SetUser(ctx, id); err != nil {
			rt.Log.Warn(ctx, "failed to bind user", "error", err)
		}
	}
	if _, err := rt.Moments.ImportStaged(ctx); err != nil {
		rt.Log.Warn(ctx, "some staged moments were not imported", "error", err)
	}
	return nil
}

// Start begins connectivity monitoring and automatic sync.
func (rt *Runtime) Start(ctx context.Context) {
	if err := rt.Monitor.Initialize(ctx); err != nil {
		rt.Log.Warn(ctx, "connectivity monitor degraded", "error", err)
	}
	if rt.Remote != nil {
		rt.Scheduler.Start(ctx)
	}
}

// Close stops background work and releases resources in reverse order.
func (rt *Runtime) Close() error {
	rt.Scheduler.Stop()
	rt.Monitor.Teardown()

	var errs []error
	if err := rt.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (rt *Runtime) fail(err error) error {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
	return fmt.Errorf("init client: %w", err)
}

// RemoteMigrate applies the remote schema; only the Postgres backend owns
// its schema.
func (rt *Runtime) RemoteMigrate(ctx context.Context) error {
	if rt.RemoteDB == nil {
		return fmt.Errorf("remote migrations need remote_backend %q", config.BackendPostgres)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	return remote.RunMigrations(ctx, rt.RemoteDB)
}
