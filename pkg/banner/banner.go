package banner

import (
	"fmt"

	"refersync/pkg/config"
)

const banner = `
██████╗ ███████╗███████╗███████╗██████╗ ███████╗██╗   ██╗███╗   ██╗ ██████╗
██╔══██╗██╔════╝██╔════╝██╔════╝██╔══██╗██╔════╝╚██╗ ██╔╝████╗  ██║██╔════╝
██████╔╝█████╗  █████╗  █████╗  ██████╔╝███████╗ ╚████╔╝ ██╔██╗ ██║██║
██╔══██╗██╔══╝  ██╔══╝  ██╔══╝  ██╔══██╗╚════██║  ╚██╔╝  ██║╚██╗██║██║
██║  ██║███████╗██║     ███████╗██║  ██║███████║   ██║   ██║ ╚████║╚██████╗
╚═╝  ╚═╝╚══════╝╚═╝     ╚══════╝╚═╝  ╚═╝╚══════╝   ╚═╝   ╚═╝  ╚═══╝ ╚═════╝
`

// PrintWithEff prints the startup banner with the effective runtime
// configuration and quick production-readiness checks.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/referrals' -d '{\"patientId\":\"p1\",\"specialty\":\"cardiology\",\"type\":\"digital\",\"receivingDoctorId\":\"d2\"}'")
	fmt.Println("curl 'http://<host>:<port>/v1/threads/<a>/<b>/messages'")
	fmt.Println("curl 'http://<host>:<port>/v1/inbox'")

	fmt.Println("\n== Production? ================================================")
	be, fe := 0, 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
		fe = len(eff.Config.Security.APIKeys.Frontend)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}

	if eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if dbPath != "" {
		fmt.Printf("- DB Path: %s\n", dbPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or REFERSYNC_DB_PATH)")
	}

	if eff.Config != nil {
		fmt.Printf("- Sync poll interval: %s\n", eff.Config.PollInterval())
		if eff.Config.Digest.Enabled {
			if eff.Config.Digest.Cron != "" {
				fmt.Printf("- Digest: enabled (cron=%s)\n", eff.Config.Digest.Cron)
			} else {
				fmt.Println("- Digest: enabled")
			}
		} else {
			fmt.Println("- Digest: disabled")
		}
	}

	fmt.Println("\n== Logs: ======================================================")
}
