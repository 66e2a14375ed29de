package shutdown

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"refersync/pkg/logger"
)

type exitRequest struct {
	Time      string            `json:"time"`
	Reason    string            `json:"reason"`
	Cmd       string            `json:"cmd"`
	CrashPath string            `json:"crash_path,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Abort logs a fatal condition, writes diagnostics under the DB path and
// exits after a short delay so log sinks can flush.
func Abort(contextMsg string, err error, dbPath string, delaySeconds ...int) {
	delay := 10
	if len(delaySeconds) > 0 && delaySeconds[0] >= 0 {
		delay = delaySeconds[0]
	}
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	dumpPath, reqPath, derr := writeDiagnostics(dbPath, contextMsg, err)
	if derr != nil {
		logger.Error("crash_dump_failed", "error", derr)
		fmt.Fprintf(os.Stderr, "FAILED TO WRITE CRASH DUMP: %v\n", derr)
	} else {
		logger.Info("wrote_crash_dump", "path", dumpPath, "request", reqPath)
		fmt.Fprintf(os.Stderr, "CRASH DUMP WRITTEN: %s\n", dumpPath)
	}
	for i := delay; i > 0; i-- {
		logger.Info("exiting_in_seconds", "seconds", i)
		time.Sleep(1 * time.Second)
	}
	os.Exit(2)
}

// writeDiagnostics writes a human-readable crash dump plus a
// machine-readable abort request referencing it, both under
// <dbPath>/state. Dumps land via rename so a crash mid-write never leaves
// a half-file with the final name.
func writeDiagnostics(dbPath, reason string, err error) (string, string, error) {
	crashDir := "./crash"
	abortDir := "./abort"
	if dbPath != "" {
		crashDir = filepath.Join(dbPath, "state", "crash")
		abortDir = filepath.Join(dbPath, "state", "abort")
	}
	if e := os.MkdirAll(crashDir, 0o700); e != nil {
		return "", "", fmt.Errorf("failed to create crash dir: %w", e)
	}
	if e := os.MkdirAll(abortDir, 0o700); e != nil {
		return "", "", fmt.Errorf("failed to create abort dir: %w", e)
	}

	ts := time.Now().UnixNano()
	dumpPath := filepath.Join(crashDir, fmt.Sprintf("crash-%d.log", ts))

	f, ferr := os.CreateTemp(crashDir, ".crash-*.tmp")
	if ferr != nil {
		return "", "", fmt.Errorf("failed to create temp crash file: %w", ferr)
	}
	tmpName := f.Name()
	defer func() { _ = os.Remove(tmpName) }()

	fmt.Fprintf(f, "time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	fmt.Fprintf(f, "error: %v\n", err)
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	f.Write(buf[:n])
	f.Sync()
	f.Close()

	if err := os.Rename(tmpName, dumpPath); err != nil {
		return "", "", fmt.Errorf("failed to move crash dump into place: %w", err)
	}
	_ = os.Chmod(dumpPath, 0o600)

	req := exitRequest{
		Time:      time.Now().UTC().Format(time.RFC3339),
		Reason:    reason,
		Cmd:       "crash",
		CrashPath: dumpPath,
		Meta:      map[string]string{"pid": fmt.Sprintf("%d", os.Getpid())},
	}
	reqPath, rerr := writeRequest(abortDir, ts, req)
	if rerr != nil {
		return dumpPath, "", rerr
	}
	return dumpPath, reqPath, nil
}

// RequestExitFile records an operator-requested abort (no crash dump) and
// returns the request path.
func RequestExitFile(dbPath, reason string) (string, error) {
	abortDir := "./abort"
	if dbPath != "" {
		abortDir = filepath.Join(dbPath, "state", "abort")
	}
	if err := os.MkdirAll(abortDir, 0o700); err != nil {
		return "", err
	}
	req := exitRequest{
		Time:   time.Now().UTC().Format(time.RFC3339),
		Reason: reason,
		Cmd:    "abort",
		Meta:   map[string]string{"pid": fmt.Sprintf("%d", os.Getpid())},
	}
	return writeRequest(abortDir, time.Now().UnixNano(), req)
}

func writeRequest(abortDir string, ts int64, req exitRequest) (string, error) {
	rtmp, err := os.CreateTemp(abortDir, ".req-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp req file: %w", err)
	}
	name := rtmp.Name()
	enc := json.NewEncoder(rtmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(req); err != nil {
		rtmp.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to encode req: %w", err)
	}
	rtmp.Sync()
	rtmp.Close()

	reqPath := filepath.Join(abortDir, fmt.Sprintf("req-%d.json", ts))
	if err := os.Rename(name, reqPath); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to move req into place: %w", err)
	}
	_ = os.Chmod(reqPath, 0o600)
	return reqPath, nil
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
// SIGPIPE additionally dumps goroutine stacks before cancelling, to aid
// diagnosing a dead peer on the other side of a pipe.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
		cancel()
	}()

	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)
	go func() {
		s := <-sigpipe
		logger.Info("signal_received", "signal", s.String(), "msg", "SIGPIPE - dumping goroutine stacks")
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		logger.Info("goroutine_stack_dump", "dump", string(buf[:n]))
		cancel()
	}()

	return ctx, cancel
}
