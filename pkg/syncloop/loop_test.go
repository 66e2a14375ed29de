package syncloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"refersync/pkg/logger"
	"refersync/pkg/models"
	"refersync/pkg/thread"
)

type memRepo struct {
	mu      sync.Mutex
	threads map[string][]models.Message
}

func newMemRepo() *memRepo { return &memRepo{threads: map[string][]models.Message{}} }

func (r *memRepo) Thread(key string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.threads[key]...), nil
}

func (r *memRepo) AppendMessage(key string, msg models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[key] = append(r.threads[key], msg)
	return nil
}

func (r *memRepo) UpdateThread(key string, mutate func([]models.Message) ([]models.Message, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := mutate(append([]models.Message(nil), r.threads[key]...))
	if err != nil {
		return err
	}
	r.threads[key] = out
	return nil
}

func waitSnapshot(t *testing.T, c <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s, ok := <-c:
		if !ok {
			t.Fatalf("subscription channel closed while waiting for snapshot")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestSubscriptionDeliversInitialAndChangedSnapshots(t *testing.T) {
	logger.Init()
	repo := newMemRepo()
	_ = repo.AppendMessage("k", models.Message{ID: "m1", SenderID: "drA", TS: 1, Content: "hi"})

	mgr := thread.NewManager(repo, thread.Options{})
	loop := New(repo, mgr, nil, Options{PollInterval: 10 * time.Millisecond})
	sub := loop.Subscribe(context.Background(), "k", "drB")
	defer sub.Close()

	snap := waitSnapshot(t, sub.C)
	if len(snap.Messages) != 1 || snap.Unread != 1 {
		t.Fatalf("initial snapshot: %d messages, %d unread", len(snap.Messages), snap.Unread)
	}

	// another process appends; the poller picks it up within an interval
	_ = repo.AppendMessage("k", models.Message{ID: "m2", SenderID: "drA", TS: 2, Content: "again"})
	snap = waitSnapshot(t, sub.C)
	if len(snap.Messages) != 2 || snap.Unread != 2 {
		t.Fatalf("updated snapshot: %d messages, %d unread", len(snap.Messages), snap.Unread)
	}
}

func TestCloseIsDeterministicAndIdempotent(t *testing.T) {
	logger.Init()
	repo := newMemRepo()
	mgr := thread.NewManager(repo, thread.Options{})
	loop := New(repo, mgr, nil, Options{PollInterval: 5 * time.Millisecond})

	sub := loop.Subscribe(context.Background(), "k", "drB")
	sub.Close()
	sub.Close()

	// after Close returns the channel must be closed; draining terminates
	for range sub.C {
	}

	loop.mu.Lock()
	n := len(loop.subs)
	loop.mu.Unlock()
	if n != 0 {
		t.Fatalf("closed subscription still registered")
	}
}

func TestCloseAll(t *testing.T) {
	logger.Init()
	repo := newMemRepo()
	mgr := thread.NewManager(repo, thread.Options{})
	loop := New(repo, mgr, nil, Options{PollInterval: 5 * time.Millisecond})

	s1 := loop.Subscribe(context.Background(), "k1", "drB")
	s2 := loop.Subscribe(context.Background(), "k2", "drB")
	loop.CloseAll()

	for range s1.C {
	}
	for range s2.C {
	}
}

func TestAutoMarkReadAfterDebounce(t *testing.T) {
	logger.Init()
	repo := newMemRepo()
	_ = repo.AppendMessage("k", models.Message{ID: "m1", SenderID: "drA", TS: 1, Content: "hi"})

	mgr := thread.NewManager(repo, thread.Options{})
	loop := New(repo, mgr, nil, Options{
		PollInterval:  5 * time.Millisecond,
		MarkReadAfter: 20 * time.Millisecond,
	})
	sub := loop.Subscribe(context.Background(), "k", "drB")
	defer sub.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, _ := repo.Thread("k")
		if len(msgs) == 1 && msgs[0].Read {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("auto mark-read did not fire")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
