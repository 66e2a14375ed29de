package thread

import (
	"context"
	"encoding/base64"
	"fmt"

	"refersync/pkg/models"
)

// Defaults used when the manager is constructed with zero options.
const (
	DefaultMaxAttachmentBytes = 5 * 1024 * 1024
	DefaultMaxContentLen      = 65536
)

// EncodeAttachment validates and base64-encodes a raw payload into the
// wire attachment shape. It is the suspending half of sending a file: the
// caller awaits it and must discard the result when its context is
// canceled (e.g. the hosting view closed) so a partial encode is never
// persisted.
func EncodeAttachment(ctx context.Context, name, mimeType string, payload []byte, maxBytes int64) (*models.Attachment, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	if int64(len(payload)) > maxBytes {
		return nil, fmt.Errorf("%s (%d bytes): %w", name, len(payload), ErrAttachmentTooLarge)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := base64.StdEncoding.EncodeToString(payload)
	// a cancellation racing the encode discards the finished result too;
	// nothing downstream may observe it
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.Attachment{
		Name: name,
		Type: mimeType,
		Size: int64(len(payload)),
		Data: data,
	}, nil
}

// DecodeAttachment returns the raw payload of a stored attachment.
func DecodeAttachment(a *models.Attachment) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("no attachment")
	}
	b, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("corrupt attachment payload %s: %w", a.Name, err)
	}
	return b, nil
}
