package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/logmoments/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape shared by the JSON, YAML and TOML
// loaders. Nil fields leave the current value alone. Durations use
// timex.Duration so files may write "5m" or integer nanoseconds.
type fileConfig struct {
	DataDir    *string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	DBFile     *string `json:"db_file" yaml:"db_file" toml:"db_file"`
	StagingDir *string `json:"staging_file" yaml:"staging_file" toml:"staging_file"`

	RemoteBackend *string `json:"remote_backend" yaml:"remote_backend" toml:"remote_backend"`
	RemoteDSN     *string `json:"remote_dsn" yaml:"remote_dsn" toml:"remote_dsn"`
	RESTURL       *string `json:"rest_url" yaml:"rest_url" toml:"rest_url"`
	RESTAPIKey    *string `json:"rest_api_key" yaml:"rest_api_key" toml:"rest_api_key"`
	RealtimeURL   *string `json:"realtime_url" yaml:"realtime_url" toml:"realtime_url"`

	ProbeKind           *string         `json:"probe_kind" yaml:"probe_kind" toml:"probe_kind"`
	ProbeTarget         *string         `json:"probe_target" yaml:"probe_target" toml:"probe_target"`
	StatusFile          *string         `json:"status_file" yaml:"status_file" toml:"status_file"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" yaml:"online_check_interval" toml:"online_check_interval"`

	SyncInterval      *timex.Duration `json:"sync_interval" yaml:"sync_interval" toml:"sync_interval"`
	RetryDelay        *timex.Duration `json:"retry_delay" yaml:"retry_delay" toml:"retry_delay"`
	MaxRetries        *int            `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	TriggerInterval   *timex.Duration `json:"trigger_rate" yaml:"trigger_rate" toml:"trigger_rate"`
	TriggerBurst      *int            `json:"trigger_burst" yaml:"trigger_burst" toml:"trigger_burst"`
	RealtimeReconnect *timex.Duration `json:"realtime_reconnect" yaml:"realtime_reconnect" toml:"realtime_reconnect"`

	S3Region     *string         `json:"s3_region" yaml:"s3_region" toml:"s3_region"`
	S3Endpoint   *string         `json:"s3_endpoint" yaml:"s3_endpoint" toml:"s3_endpoint"`
	S3AccessKey  *string         `json:"s3_access_key" yaml:"s3_access_key" toml:"s3_access_key"`
	S3SecretKey  *string         `json:"s3_secret_key" yaml:"s3_secret_key" toml:"s3_secret_key"`
	S3Bucket     *string         `json:"s3_bucket" yaml:"s3_bucket" toml:"s3_bucket"`
	S3PresignTTL *timex.Duration `json:"s3_presign_ttl" yaml:"s3_presign_ttl" toml:"s3_presign_ttl"`

	Notifications *bool `json:"notifications" yaml:"notifications" toml:"notifications"`

	LogLevel      *string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat     *string `json:"log_format" yaml:"log_format" toml:"log_format"`
	LogFile       *string `json:"log_file" yaml:"log_file" toml:"log_file"`
	LogMaxSizeMB  *int    `json:"log_max_size_mb" yaml:"log_max_size_mb" toml:"log_max_size_mb"`
	LogMaxBackups *int    `json:"log_max_backups" yaml:"log_max_backups" toml:"log_max_backups"`
}

// loadFile overlays cfg with the file at path. The format follows the
// extension: .json, .yaml/.yml or .toml.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

func (fc *fileConfig) apply(c *Config) {
	set(&c.DataDir, fc.DataDir)
	set(&c.DBFile, fc.DBFile)
	set(&c.StagingDir, fc.StagingDir)

	set(&c.RemoteBackend, fc.RemoteBackend)
	set(&c.RemoteDSN, fc.RemoteDSN)
	set(&c.RESTURL, fc.RESTURL)
	set(&c.RESTAPIKey, fc.RESTAPIKey)
	set(&c.RealtimeURL, fc.RealtimeURL)

	set(&c.ProbeKind, fc.ProbeKind)
	set(&c.ProbeTarget, fc.ProbeTarget)
	set(&c.StatusFile, fc.StatusFile)
	setDuration(&c.OnlineCheckInterval, fc.OnlineCheckInterval)

	setDuration(&c.SyncInterval, fc.SyncInterval)
	setDuration(&c.RetryDelay, fc.RetryDelay)
	set(&c.MaxRetries, fc.MaxRetries)
	setDuration(&c.TriggerInterval, fc.TriggerInterval)
	set(&c.TriggerBurst, fc.TriggerBurst)
	setDuration(&c.RealtimeReconnect, fc.RealtimeReconnect)

	set(&c.S3Region, fc.S3Region)
	set(&c.S3Endpoint, fc.S3Endpoint)
	set(&c.S3AccessKey, fc.S3AccessKey)
	set(&c.S3SecretKey, fc.S3SecretKey)
	set(&c.S3Bucket, fc.S3Bucket)
	setDuration(&c.S3PresignTTL, fc.S3PresignTTL)

	set(&c.Notifications, fc.Notifications)

	set(&c.LogLevel, fc.LogLevel)
	set(&c.LogFormat, fc.LogFormat)
	set(&c.LogFile, fc.LogFile)
	set(&c.LogMaxSizeMB, fc.LogMaxSizeMB)
	set(&c.LogMaxBackups, fc.LogMaxBackups)
}
