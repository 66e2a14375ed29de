package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"refersync/internal/app"
	"refersync/pkg/config"
	"refersync/pkg/logger"
	"refersync/pkg/shutdown"
	"refersync/pkg/state"
)

// build metadata, set via ldflags during release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")

	flags := config.ParseConfigFlags()
	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		logger.Init()
		shutdown.Abort("config_parse_failed", err, "", 0)
	}
	envCfg, envRes := config.ParseConfigEnvs()
	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envRes)
	if err != nil {
		logger.Init()
		shutdown.Abort("config_resolve_failed", err, "", 0)
	}

	logger.InitWithLevel(eff.Config.Logging.Level)

	if err := state.EnsureStateDirs(eff.DBPath); err != nil {
		shutdown.Abort("state_dirs_failed", err, eff.DBPath, 0)
	}
	if err := logger.AttachAuditFileSink(state.AuditPath(eff.DBPath)); err != nil {
		// audit is best-effort at startup; the service still runs
		logger.Warn("audit_sink_unavailable", "error", err)
	}

	a, err := app.New(eff, app.Directories{}, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup_failed", err, eff.DBPath, 0)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		logger.Error("server_exit", "error", err)
		os.Exit(1)
	}
}
