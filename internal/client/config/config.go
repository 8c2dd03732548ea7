package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/filex"
	"github.com/spf13/pflag"
)

// Remote backends.
const (
	BackendNone     = ""
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

// Connectivity probes.
const (
	ProbeNone = "none"
	ProbeGRPC = "grpc"
	ProbeHTTP = "http"
	ProbeFile = "file"
)

// Config holds runtime settings for the LogMoments client.
type Config struct {
	DataDir    string `envconfig:"DATA_DIR"`
	DBFile     string `envconfig:"DB_FILE"`
	StagingDir string `envconfig:"STAGING_DIR"`

	RemoteBackend string `envconfig:"REMOTE_BACKEND"`
	RemoteDSN     string `envconfig:"REMOTE_DSN"`
	RESTURL       string `envconfig:"REST_URL"`
	RESTAPIKey    string `envconfig:"REST_API_KEY"`
	RealtimeURL   string `envconfig:"REALTIME_URL"`

	ProbeKind           string        `envconfig:"PROBE_KIND"`
	ProbeTarget         string        `envconfig:"PROBE_TARGET"`
	StatusFile          string        `envconfig:"STATUS_FILE"`
	OnlineCheckInterval time.Duration `envconfig:"ONLINE_CHECK_INTERVAL"`

	SyncInterval      time.Duration `envconfig:"SYNC_INTERVAL"`
	RetryDelay        time.Duration `envconfig:"RETRY_DELAY"`
	MaxRetries        int           `envconfig:"MAX_RETRIES"`
	TriggerInterval   time.Duration `envconfig:"TRIGGER_INTERVAL"`
	TriggerBurst      int           `envconfig:"TRIGGER_BURST"`
	RealtimeReconnect time.Duration `envconfig:"REALTIME_RECONNECT"`

	S3Region     string        `envconfig:"S3_REGION"`
	S3Endpoint   string        `envconfig:"S3_ENDPOINT"`
	S3AccessKey  string        `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey  string        `envconfig:"S3_SECRET_KEY"`
	S3Bucket     string        `envconfig:"S3_BUCKET"`
	S3PresignTTL time.Duration `envconfig:"S3_PRESIGN_TTL"`

	Notifications bool `envconfig:"NOTIFICATIONS"`

	LogLevel      string `envconfig:"LOG_LEVEL"`
	LogFormat     string `envconfig:"LOG_FORMAT"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	*c = Config{
		DataDir:             filex.DefaultDataDir(),
		DBFile:              "moments.db",
		StagingDir:          "staging",
		RemoteBackend:       BackendNone,
		ProbeKind:           ProbeNone,
		OnlineCheckInterval: 3 * time.Second,
		SyncInterval:        common.AutoSyncInterval,
		RetryDelay:          common.RetryDelay,
		MaxRetries:          common.MaxRetryAttempts,
		TriggerInterval:     10 * time.Second,
		TriggerBurst:        3,
		RealtimeReconnect:   30 * time.Second,
		S3PresignTTL:        15 * time.Minute,
		Notifications:       true,
		LogLevel:            "info",
		LogFormat:           "text",
		LogMaxSizeMB:        10,
		LogMaxBackups:       3,
	}
}

// Load builds a Config from defaults, then the config file named by the
// --config flag (or LOGMOMENTS_CONFIG), then LOGMOMENTS_* environment
// variables, then flags the user actually set on fs. Later sources win.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, err := configPath(fs)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := loadEnv(cfg); err != nil {
		return nil, err
	}
	if fs != nil {
		if err := applyFlags(fs, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	switch c.RemoteBackend {
	case BackendNone:
	case BackendPostgres:
		if c.RemoteDSN == "" {
			return fmt.Errorf("remote_backend %q needs remote_dsn", c.RemoteBackend)
		}
	case BackendREST:
		if c.RESTURL == "" {
			return fmt.Errorf("remote_backend %q needs rest_url", c.RemoteBackend)
		}
	default:
		return fmt.Errorf("unknown remote_backend %q", c.RemoteBackend)
	}

	switch c.ProbeKind {
	case ProbeNone:
	case ProbeGRPC, ProbeHTTP:
		if c.ProbeTarget == "" {
			return fmt.Errorf("probe_kind %q needs probe_target", c.ProbeKind)
		}
	case ProbeFile:
		if c.StatusFile == "" {
			return fmt.Errorf("probe_kind %q needs status_file", c.ProbeKind)
		}
	default:
		return fmt.Errorf("unknown probe_kind %q", c.ProbeKind)
	}

	if c.OnlineCheckInterval <= 0 || c.SyncInterval <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// DBPath is the local database file.
func (c *Config) DBPath() string { return c.resolve(c.DBFile) }

// StagingPath is the directory of the staging buffer.
func (c *Config) StagingPath() string { return c.resolve(c.StagingDir) }

// LogPath is the rotated log file, or "" for stderr.
func (c *Config) LogPath() string { return c.resolve(c.LogFile) }

// RemoteEnabled reports whether any remote backend is configured.
func (c *Config) RemoteEnabled() bool { return c.RemoteBackend != BackendNone }

// PhotosEnabled reports whether an object store is configured.
func (c *Config) PhotosEnabled() bool { return c.S3Bucket != "" }
