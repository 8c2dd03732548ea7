package config

import (
	"time"

	"github.com/spf13/pflag"
)

// FlagConfig names the config file flag.
const FlagConfig = "config"

// flagSpec maps one command-line flag onto a Config field. Exactly one of
// str and dur is set.
type flagSpec struct {
	name  string
	usage string
	str   func(*Config) *string
	dur   func(*Config) *time.Duration
}

var flagSpecs = []flagSpec{
	{name: "data-dir", usage: "directory holding the local database and staging buffer", str: func(c *Config) *string { return &c.DataDir }},
	{name: "db-file", usage: "local database file, relative to data-dir", str: func(c *Config) *string { return &c.DBFile }},
	{name: "remote-backend", usage: "remote table backend: postgres, rest or empty for none", str: func(c *Config) *string { return &c.RemoteBackend }},
	{name: "remote-dsn", usage: "Postgres connection string", str: func(c *Config) *string { return &c.RemoteDSN }},
	{name: "rest-url", usage: "base URL of the REST table endpoint", str: func(c *Config) *string { return &c.RESTURL }},
	{name: "realtime-url", usage: "websocket change feed URL", str: func(c *Config) *string { return &c.RealtimeURL }},
	{name: "probe", usage: "connectivity probe: none, grpc, http or file", str: func(c *Config) *string { return &c.ProbeKind }},
	{name: "probe-target", usage: "address checked by the grpc or http probe", str: func(c *Config) *string { return &c.ProbeTarget }},
	{name: "status-file", usage: "file read by the file probe", str: func(c *Config) *string { return &c.StatusFile }},
	{name: "online-check-interval", usage: "how often the probe runs", dur: func(c *Config) *time.Duration { return &c.OnlineCheckInterval }},
	{name: "sync-interval", usage: "automatic sync interval", dur: func(c *Config) *time.Duration { return &c.SyncInterval }},
	{name: "log-level", usage: "debug, info, warn or error", str: func(c *Config) *string { return &c.LogLevel }},
	{name: "log-format", usage: "text or json", str: func(c *Config) *string { return &c.LogFormat }},
	{name: "log-file", usage: "rotated log file, relative to data-dir; empty logs to stderr", str: func(c *Config) *string { return &c.LogFile }},
}

// RegisterFlags declares the config file flag and the overridable settings
// on fs, typically a cobra command's persistent flags.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagConfig, "c", "", "config file (.json, .yaml or .toml)")
	for _, f := range flagSpecs {
		if f.dur != nil {
			fs.Duration(f.name, 0, f.usage)
		} else {
			fs.String(f.name, "", f.usage)
		}
	}
}

// applyFlags copies only the flags the user set, so unset flags never
// clobber file or environment values.
func applyFlags(fs *pflag.FlagSet, c *Config) error {
	for _, f := range flagSpecs {
		if fs.Lookup(f.name) == nil || !fs.Changed(f.name) {
			continue
		}
		if f.dur != nil {
			v, err := fs.GetDuration(f.name)
			if err != nil {
				return err
			}
			*f.dur(c) = v
			continue
		}
		v, err := fs.GetString(f.name)
		if err != nil {
			return err
		}
		*f.str(c) = v
	}
	return nil
}

// configPath returns the config file named by the flag, falling back to
// LOGMOMENTS_CONFIG.
func configPath(fs *pflag.FlagSet) (string, error) {
	if fs != nil && fs.Lookup(FlagConfig) != nil {
		p, err := fs.GetString(FlagConfig)
		if err != nil {
			return "", err
		}
		if p != "" {
			return p, nil
		}
	}
	return envConfigPath(), nil
}
