package thread

import (
	"context"
	"fmt"
	"time"

	"refersync/pkg/auth"
	"refersync/pkg/logger"
	"refersync/pkg/models"
	"refersync/pkg/utils"
	"refersync/pkg/validation"
)

// Repo is the conversation repository the manager operates on. It is
// satisfied by *store.Store and injected so viewers, tests and tooling can
// share one storage location without an ambient singleton.
type Repo interface {
	Thread(key string) ([]models.Message, error)
	AppendMessage(key string, msg models.Message) error
	UpdateThread(key string, mutate func([]models.Message) ([]models.Message, error)) error
}

// Options bounds message payloads accepted by the manager.
type Options struct {
	// MaxAttachmentBytes caps the decoded size of a single attachment.
	MaxAttachmentBytes int64
	// MaxContentLen caps message content length in bytes.
	MaxContentLen int
}

// Manager implements send/edit/delete/markRead over a conversation thread.
// Ownership checks live here, keyed on the auth.Context of the caller, not
// in the HTTP layer.
type Manager struct {
	repo Repo
	opts Options
}

// NewManager returns a Manager over repo with the given bounds. Zero
// option values fall back to package defaults.
func NewManager(repo Repo, opts Options) *Manager {
	if opts.MaxAttachmentBytes <= 0 {
		opts.MaxAttachmentBytes = DefaultMaxAttachmentBytes
	}
	if opts.MaxContentLen <= 0 {
		opts.MaxContentLen = DefaultMaxContentLen
	}
	return &Manager{repo: repo, opts: opts}
}

// MaxAttachmentBytes exposes the effective attachment cap.
func (m *Manager) MaxAttachmentBytes() int64 { return m.opts.MaxAttachmentBytes }

// Send appends a new message authored by the calling actor. Attachments
// are validated against the size cap before anything is persisted; on
// rejection the thread is left exactly as it was.
func (m *Manager) Send(ctx context.Context, az auth.Context, key string, content string, atts []models.Attachment) (models.Message, error) {
	var zero models.Message
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	msg := models.Message{
		ID:         utils.GenMessageID(),
		SenderID:   az.ActorID,
		SenderName: az.ActorName,
		SenderRole: az.ActorRole,
		Content:    content,
		TS:         time.Now().UTC().UnixNano(),
		Read:       false,
	}
	for _, a := range atts {
		if a.Size > m.opts.MaxAttachmentBytes {
			logger.Warn("attachment_rejected", "key", key, "name", a.Name, "size", a.Size, "cap", m.opts.MaxAttachmentBytes)
			return zero, fmt.Errorf("%s (%d bytes): %w", a.Name, a.Size, ErrAttachmentTooLarge)
		}
	}
	var extra []models.Attachment
	if len(atts) > 0 {
		a := atts[0]
		msg.File = &a
		extra = atts[1:]
	}
	// the file must be attached before validating so a file-only send
	// passes the content-or-file check
	if err := validation.ValidateMessage(msg, m.opts.MaxContentLen); err != nil {
		return zero, err
	}
	// the wire shape carries one file per message; further attachments ride
	// as file-only entries in append order. Everything is validated before
	// the first append so a rejection leaves the thread untouched.
	var fanout []models.Message
	for _, a := range extra {
		a := a
		fm := models.Message{
			ID:         utils.GenMessageID(),
			SenderID:   az.ActorID,
			SenderName: az.ActorName,
			SenderRole: az.ActorRole,
			TS:         time.Now().UTC().UnixNano(),
			File:       &a,
		}
		if err := validation.ValidateMessage(fm, m.opts.MaxContentLen); err != nil {
			return zero, err
		}
		fanout = append(fanout, fm)
	}
	if err := m.repo.AppendMessage(key, msg); err != nil {
		return zero, err
	}
	for _, fm := range fanout {
		if err := m.repo.AppendMessage(key, fm); err != nil {
			return zero, err
		}
	}
	logger.Info("message_sent", "key", key, "msg_id", msg.ID, "sender", az.ActorID, "attachments", len(atts))
	return msg, nil
}

// Edit replaces the content of a message. Only the original sender may
// edit; anyone else gets ErrPermissionViolation and the thread is
// unchanged.
func (m *Manager) Edit(ctx context.Context, az auth.Context, key, msgID, newContent string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.repo.UpdateThread(key, func(msgs []models.Message) ([]models.Message, error) {
		for i := range msgs {
			if msgs[i].ID != msgID {
				continue
			}
			if msgs[i].SenderID != az.ActorID {
				return nil, fmt.Errorf("edit %s by %s: %w", msgID, az.ActorID, ErrPermissionViolation)
			}
			msgs[i].Content = newContent
			return msgs, nil
		}
		return nil, fmt.Errorf("edit %s: %w", msgID, ErrMessageNotFound)
	})
}

// Delete permanently removes a message authored by the calling actor.
// There is no tombstone; sibling order is preserved.
func (m *Manager) Delete(ctx context.Context, az auth.Context, key, msgID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.repo.UpdateThread(key, func(msgs []models.Message) ([]models.Message, error) {
		for i := range msgs {
			if msgs[i].ID != msgID {
				continue
			}
			if msgs[i].SenderID != az.ActorID {
				return nil, fmt.Errorf("delete %s by %s: %w", msgID, az.ActorID, ErrPermissionViolation)
			}
			return append(msgs[:i:i], msgs[i+1:]...), nil
		}
		return nil, fmt.Errorf("delete %s: %w", msgID, ErrMessageNotFound)
	})
}

// errNoChange aborts an UpdateThread round trip when nothing would change.
var errNoChange = fmt.Errorf("no change")

// MarkRead flags every message not authored by viewerID as read and
// returns how many messages were newly flagged. Repeated calls are no-ops.
func (m *Manager) MarkRead(ctx context.Context, key, viewerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	changed := 0
	err := m.repo.UpdateThread(key, func(msgs []models.Message) ([]models.Message, error) {
		for i := range msgs {
			if !msgs[i].Read && msgs[i].SenderID != viewerID {
				msgs[i].Read = true
				changed++
			}
		}
		if changed == 0 {
			return nil, errNoChange
		}
		return msgs, nil
	})
	if err != nil && err != errNoChange {
		return 0, err
	}
	if changed > 0 {
		logger.Info("thread_marked_read", "key", key, "viewer", viewerID, "count", changed)
	}
	return changed, nil
}
