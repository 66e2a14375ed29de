package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/pebble"

	"refersync/pkg/logger"
	"refersync/pkg/models"
)

// ErrNotFound is returned when a referral or message does not exist.
var ErrNotFound = errors.New("not found")

const (
	threadKeyPrefix   = "messages_"
	referralKeyPrefix = "referral:"
)

// Store is a pebble-backed repository for conversation threads and
// referral records. It is passed explicitly to every component that needs
// it; there is no package-level handle.
//
// Threads are stored as a whole JSON array under their conversation key
// and every mutation is a read-modify-write of the full array. Under two
// genuinely concurrent writers the last write wins; this is an accepted
// correctness boundary for the low write concurrency of clinical
// conversations.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a pebble database at the given path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the underlying pebble DB.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool { return s != nil && s.db != nil }

// PebbleMetrics returns the live metrics of the underlying database, or
// nil when the store is closed.
func (s *Store) PebbleMetrics() *pebble.Metrics {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Metrics()
}

// ThreadKey derives the deterministic conversation key for two participant
// IDs. The pair is unordered: ThreadKey(a, b) == ThreadKey(b, a).
func ThreadKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return threadKeyPrefix + strings.Join(ids, "_")
}

// IsThreadKey reports whether key is in the conversation-key namespace.
func IsThreadKey(key string) bool { return strings.HasPrefix(key, threadKeyPrefix) }

// Thread returns the ordered message sequence stored under key. A missing
// key yields an empty slice. A corrupt value is logged, counted and
// degraded to an empty slice; it is never surfaced as a fatal error.
func (s *Store) Thread(key string) ([]models.Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	threadReads.Inc()
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return []models.Message{}, nil
		}
		threadReadFailures.Inc()
		logger.Error("thread_read_failed", "key", key, "error", err)
		return nil, err
	}
	defer closer.Close()
	var msgs []models.Message
	if err := json.Unmarshal(v, &msgs); err != nil {
		// degrade to empty rather than poisoning every viewer of this thread
		threadParseFailures.Inc()
		logger.Error("thread_parse_failed", "key", key, "len", len(v), "error", err)
		return []models.Message{}, nil
	}
	return msgs, nil
}

// UpdateThread applies mutate to the current message sequence and persists
// the result as one synchronous write. The empty sequence is stored as an
// empty JSON array so a later read does not conflate it with corruption.
func (s *Store) UpdateThread(key string, mutate func([]models.Message) ([]models.Message, error)) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	msgs, err := s.Thread(key)
	if err != nil {
		return err
	}
	next, err := mutate(msgs)
	if err != nil {
		return err
	}
	data, err := json.Marshal(next)
	if err != nil {
		threadWriteFailures.Inc()
		return fmt.Errorf("failed to marshal thread: %w", err)
	}
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		threadWriteFailures.Inc()
		logger.Error("thread_write_failed", "key", key, "error", err)
		return err
	}
	threadWrites.Inc()
	return nil
}

// AppendMessage appends msg to the thread under key, creating the thread
// lazily on first use.
func (s *Store) AppendMessage(key string, msg models.Message) error {
	err := s.UpdateThread(key, func(msgs []models.Message) ([]models.Message, error) {
		return append(msgs, msg), nil
	})
	if err != nil {
		return err
	}
	logger.Info("message_saved", "key", key, "msg_id", msg.ID)
	return nil
}

// ReplaceMessage applies mutate to the message with the given ID in place.
// Sibling order is untouched. Returns ErrNotFound when no such message
// exists.
func (s *Store) ReplaceMessage(key, msgID string, mutate func(*models.Message)) error {
	return s.UpdateThread(key, func(msgs []models.Message) ([]models.Message, error) {
		for i := range msgs {
			if msgs[i].ID == msgID {
				mutate(&msgs[i])
				return msgs, nil
			}
		}
		return nil, fmt.Errorf("message %s: %w", msgID, ErrNotFound)
	})
}

// RemoveMessage permanently deletes the message with the given ID. No
// tombstone is written and sibling order is preserved.
func (s *Store) RemoveMessage(key, msgID string) error {
	err := s.UpdateThread(key, func(msgs []models.Message) ([]models.Message, error) {
		for i := range msgs {
			if msgs[i].ID == msgID {
				return append(msgs[:i:i], msgs[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("message %s: %w", msgID, ErrNotFound)
	})
	if err != nil {
		return err
	}
	logger.Info("message_removed", "key", key, "msg_id", msgID)
	return nil
}

// SaveReferral persists a referral record under its ID.
func (s *Store) SaveReferral(ref models.Referral) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("failed to marshal referral: %w", err)
	}
	key := referralKeyPrefix + ref.ID
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_referral_failed", "id", ref.ID, "error", err)
		return err
	}
	referralWrites.Inc()
	logger.Info("referral_saved", "id", ref.ID, "status", string(ref.Status))
	return nil
}

// GetReferral returns the referral with the given ID.
func (s *Store) GetReferral(id string) (models.Referral, error) {
	var ref models.Referral
	if s.db == nil {
		return ref, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := s.db.Get([]byte(referralKeyPrefix + id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ref, fmt.Errorf("referral %s: %w", id, ErrNotFound)
		}
		return ref, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &ref); err != nil {
		return ref, fmt.Errorf("invalid referral record %s: %w", id, err)
	}
	return ref, nil
}

// ListReferrals returns all stored referral records in key order.
func (s *Store) ListReferrals() ([]models.Referral, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte(referralKeyPrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Referral
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		v := append([]byte(nil), iter.Value()...)
		var ref models.Referral
		if err := json.Unmarshal(v, &ref); err != nil {
			logger.Error("referral_parse_failed", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, ref)
	}
	return out, iter.Error()
}
