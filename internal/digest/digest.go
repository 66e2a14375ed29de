// Package digest runs the scheduled inbox digest job: a periodic summary
// of pending referrals and unread conversations per receiving doctor,
// emitted to the audit log so practices without an open viewer still see
// what is waiting on them.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"refersync/pkg/config"
	"refersync/pkg/inbox"
	"refersync/pkg/logger"
	"refersync/pkg/models"
	"refersync/pkg/store"
)

// DefaultCron fires daily at 07:00.
const DefaultCron = "0 7 * * *"

// Deps are the collaborators one digest run reads from. Runs never write
// to the store.
type Deps struct {
	Store *store.Store
}

// Start launches the digest scheduler when enabled. The returned cancel
// stops the scheduler; a run already in flight finishes.
func Start(ctx context.Context, cfg config.DigestConfig, deps Deps) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("digest_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = DefaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("digest_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid digest cron expression: %s", cfg.Cron)
	}

	logger.Info("digest_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, deps)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until
// then, so full cron syntax is honored without a polling loop.
func runScheduler(ctx context.Context, cronExpr string, deps Deps) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("digest_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("digest_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("digest_scheduler_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(ctx, deps); err != nil {
				logger.Error("digest_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("digest_scheduler_stopping")
			return
		}
	}
}

// RunOnce computes and emits one digest for every doctor that currently
// has digital referrals addressed to them.
func RunOnce(ctx context.Context, deps Deps) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	refs, err := deps.Store.ListReferrals()
	if err != nil {
		return fmt.Errorf("digest: list referrals: %w", err)
	}

	idx := inbox.BuildIndex(deps.Store, refs)

	type summary struct {
		specialties int
		pending     int
		unread      int
	}
	perDoctor := map[string]*summary{}
	for _, sg := range idx.Groups {
		for _, dg := range sg.Doctors {
			s := perDoctor[dg.DoctorID]
			if s == nil {
				s = &summary{}
				perDoctor[dg.DoctorID] = s
			}
			s.specialties++
			s.unread += dg.Unread
			for _, ref := range dg.Referrals {
				if ref.Status == models.StatusPending {
					s.pending++
				}
			}
		}
	}

	for doctorID, s := range perDoctor {
		if err := ctx.Err(); err != nil {
			return err
		}
		if logger.Audit != nil {
			logger.Audit.Info("inbox_digest", "doctor", doctorID, "specialties", s.specialties, "pending", s.pending, "unread", s.unread)
		} else {
			logger.Info("inbox_digest", "doctor", doctorID, "specialties", s.specialties, "pending", s.pending, "unread", s.unread)
		}
	}
	logger.Info("digest_run_complete", "doctors", len(perDoctor), "referrals", len(refs))
	return nil
}
