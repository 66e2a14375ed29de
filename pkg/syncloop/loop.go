// Package syncloop keeps open conversation views converged by polling the
// store. There is no push channel between viewers; two processes pointed
// at the same store see each other's messages within one poll interval.
package syncloop

import (
	"context"
	"sync"
	"time"

	"refersync/pkg/logger"
	"refersync/pkg/models"
	"refersync/pkg/thread"
	"refersync/pkg/unread"
)

// DefaultPollInterval is used when the loop is built with a zero interval.
const DefaultPollInterval = 5 * time.Second

// Referrals is the optional status hook the loop drives after each poll
// and after an auto acknowledgement.
type Referrals interface {
	SyncConversation(key string) error
	OnMarkRead(key, viewerID string, newlyRead int) error
}

// Options tunes one Loop.
type Options struct {
	// PollInterval is the period between store reads per subscription.
	PollInterval time.Duration
	// MarkReadAfter, when positive, auto-acknowledges a viewed conversation
	// once it has shown unread messages for at least this long. Zero
	// disables auto acknowledgement; callers mark read explicitly.
	MarkReadAfter time.Duration
}

// Loop owns the polling subscriptions of one process.
type Loop struct {
	repo      unread.Repo
	threads   *thread.Manager
	referrals Referrals
	opts      Options

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// New builds a Loop. referrals may be nil when no referral status should
// be derived from the polled conversations.
func New(repo unread.Repo, threads *thread.Manager, referrals Referrals, opts Options) *Loop {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Loop{
		repo:      repo,
		threads:   threads,
		referrals: referrals,
		opts:      opts,
		subs:      make(map[*Subscription]struct{}),
	}
}

// Snapshot is one observed state of a conversation.
type Snapshot struct {
	Key      string
	Messages []models.Message
	Unread   int
	// Polled is when the store was read, not when any message was sent.
	Polled time.Time
}

// Subscription is one open view onto a conversation. Snapshots arrive on
// C whenever the polled thread differs from the last delivery. Close is
// deterministic: it stops the poller, waits for it to finish and closes C,
// so after Close returns no further snapshot is delivered.
type Subscription struct {
	C <-chan Snapshot

	key      string
	viewerID string
	ch       chan Snapshot
	cancel   context.CancelFunc
	done     sync.WaitGroup
	once     sync.Once
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		s.done.Wait()
		close(s.ch)
	})
}

// Subscribe opens a polling view for viewerID onto key. The first snapshot
// is read and delivered immediately; afterwards the store is re-read every
// poll interval and a snapshot is delivered only when the thread changed.
func (l *Loop) Subscribe(ctx context.Context, key, viewerID string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		key:      key,
		viewerID: viewerID,
		ch:       make(chan Snapshot, 1),
		cancel:   cancel,
	}
	sub.C = sub.ch

	l.mu.Lock()
	l.subs[sub] = struct{}{}
	l.mu.Unlock()

	sub.done.Add(1)
	go func() {
		defer sub.done.Done()
		defer func() {
			l.mu.Lock()
			delete(l.subs, sub)
			l.mu.Unlock()
		}()
		l.run(ctx, sub)
	}()
	logger.Info("sync_subscribed", "key", key, "viewer", viewerID)
	return sub
}

func (l *Loop) run(ctx context.Context, sub *Subscription) {
	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	var lastLen, lastUnread int
	var first = true
	var unreadSince time.Time

	poll := func() {
		msgs, err := l.repo.Thread(sub.key)
		if err != nil {
			logger.Warn("sync_poll_failed", "key", sub.key, "error", err)
			return
		}
		n := unread.Count(msgs, sub.viewerID)

		if l.opts.MarkReadAfter > 0 && n > 0 {
			if unreadSince.IsZero() {
				unreadSince = time.Now()
			} else if time.Since(unreadSince) >= l.opts.MarkReadAfter {
				changed, err := l.threads.MarkRead(ctx, sub.key, sub.viewerID)
				if err != nil {
					logger.Warn("sync_auto_ack_failed", "key", sub.key, "error", err)
				} else if changed > 0 {
					if l.referrals != nil {
						if err := l.referrals.OnMarkRead(sub.key, sub.viewerID, changed); err != nil {
							logger.Warn("referral_sync_failed", "key", sub.key, "error", err)
						}
					}
					// re-read so the delivered snapshot reflects the ack
					if fresh, err := l.repo.Thread(sub.key); err == nil {
						msgs = fresh
						n = unread.Count(msgs, sub.viewerID)
					}
				}
				unreadSince = time.Time{}
			}
		} else {
			unreadSince = time.Time{}
		}

		if l.referrals != nil {
			if err := l.referrals.SyncConversation(sub.key); err != nil {
				logger.Warn("referral_sync_failed", "key", sub.key, "error", err)
			}
		}

		if !first && len(msgs) == lastLen && n == lastUnread {
			return
		}
		first = false
		lastLen, lastUnread = len(msgs), n

		snap := Snapshot{Key: sub.key, Messages: msgs, Unread: n, Polled: time.Now()}
		// drop the stale pending snapshot rather than block the poller on a
		// slow consumer; the fresh one supersedes it
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snap:
			default:
			}
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// CloseAll shuts every open subscription down, for process shutdown.
func (l *Loop) CloseAll() {
	l.mu.Lock()
	subs := make([]*Subscription, 0, len(l.subs))
	for s := range l.subs {
		subs = append(subs, s)
	}
	l.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}
