package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	// LogLevelChanged is set when server.log_level differs. The log level is
	// the only setting applied without a restart.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired lists the changed settings that only take effect after
	// a restart, in schema order.
	RestartRequired []string
}

// Changed reports whether d records any difference.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	sections := []struct {
		name     string
		old, new any
	}{
		{"server.listen_addr", old.Server.ListenAddr, new.Server.ListenAddr},
		{"server.max_audio_bytes", old.Server.MaxAudioBytes, new.Server.MaxAudioBytes},
		{"server.tls", old.Server.TLS, new.Server.TLS},
		{"transcription", old.Transcription, new.Transcription},
		{"fallback", old.Fallback, new.Fallback},
		{"assessment", old.Assessment, new.Assessment},
		{"history", old.History, new.History},
		{"telemetry", old.Telemetry, new.Telemetry},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			d.RestartRequired = append(d.RestartRequired, s.name)
		}
	}
	return d
}
