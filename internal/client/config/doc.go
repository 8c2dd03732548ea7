// Package config loads runtime configuration for the LogMoments client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file named by --config/-c or LOGMOMENTS_CONFIG.
//     The extension picks the format: .json, .yaml/.yml or .toml.
//  3. LOGMOMENTS_* environment variables (e.g. LOGMOMENTS_REMOTE_DSN).
//  4. Command-line flags, applied only when set explicitly.
//
// # File schema
//
// Intervals use timex.Duration, so values can be strings like "5m" or
// integer nanoseconds:
//
//	{
//	  "remote_backend": "rest",
//	  "rest_url": "https://example.supabase.co/rest/v1",
//	  "sync_interval": "5m",
//	  "probe_kind": "http",
//	  "probe_target": "https://example.supabase.co"
//	}
//
// Relative paths (db_file, staging_file, log_file) resolve against
// data_dir, which defaults to $XDG_DATA_HOME/logmoments.
package config
