package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"refersync/pkg/api"
	"refersync/pkg/auth"
	"refersync/pkg/banner"
	"refersync/pkg/telemetry"
)

const httpShutdownTimeout = 10 * time.Second

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" && a.commit != "" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" && a.buildDate != "" {
		verStr += " @ " + a.buildDate
	}
	banner.PrintWithEff(a.eff, verStr)
}

// setupHTTPHandlers mounts health, metrics and the API router.
func (a *App) setupHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", a.readyzHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api.NewRouter(api.Deps{
		Store:     a.store,
		Threads:   a.threads,
		Referrals: a.referrals,
	}))
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !a.store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + ver + `"}`))
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// startHTTP builds the handler chain, starts the HTTP server in a
// goroutine and returns a channel carrying any server error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	mux := http.NewServeMux()
	a.setupHTTPHandlers(mux)

	secCfg := auth.SecConfig{
		AllowedOrigins: append([]string{}, a.eff.Config.Security.CORS.AllowedOrigins...),
		RPS:            a.eff.Config.Security.RateLimit.RPS,
		Burst:          a.eff.Config.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, a.eff.Config.Security.IPWhitelist...),
		BackendKeys:    map[string]struct{}{},
		FrontendKeys:   map[string]struct{}{},
	}
	for _, k := range a.eff.Config.Security.APIKeys.Backend {
		secCfg.BackendKeys[k] = struct{}{}
	}
	for _, k := range a.eff.Config.Security.APIKeys.Frontend {
		secCfg.FrontendKeys[k] = struct{}{}
	}

	wrapped := auth.AuthenticateRequestMiddleware(secCfg)(mux)
	wrapped = telemetry.Middleware(wrapped)

	a.srv = &http.Server{Addr: a.eff.Addr, Handler: wrapped}

	errCh := make(chan error, 1)
	go func() {
		cert := a.eff.Config.Server.TLS.CertFile
		key := a.eff.Config.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.srv.ListenAndServe()
		}
	}()
	return errCh
}
