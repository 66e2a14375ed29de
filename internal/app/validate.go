package app

import (
	"fmt"
	"os"

	"refersync/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, REFERSYNC_DB_PATH env, or server.db_path in config")
	}

	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	if d := eff.Config.Sync.PollInterval.Duration(); d < 0 {
		return fmt.Errorf("sync.poll_interval must not be negative")
	}
	if d := eff.Config.Sync.MarkReadAfter.Duration(); d < 0 {
		return fmt.Errorf("sync.mark_read_after must not be negative")
	}
	if v := eff.Config.Messaging.MaxAttachmentBytes.Int64(); v < 0 {
		return fmt.Errorf("messaging.max_attachment_bytes must not be negative")
	}

	if eff.Config.Digest.Enabled && eff.Config.Digest.Cron != "" {
		// expression validity is rechecked by the scheduler; here we only
		// guard against a config that can never start
		if len(eff.Config.Digest.Cron) < 5 {
			return fmt.Errorf("digest.cron looks malformed: %q", eff.Config.Digest.Cron)
		}
	}

	return nil
}
