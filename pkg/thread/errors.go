package thread

import "errors"

var (
	// ErrAttachmentTooLarge is returned before any persistence when an
	// attachment exceeds the configured size cap. The thread is untouched.
	ErrAttachmentTooLarge = errors.New("attachment exceeds size cap")

	// ErrPermissionViolation is returned when an actor tries to edit or
	// delete a message they did not author.
	ErrPermissionViolation = errors.New("actor is not the message sender")

	// ErrMessageNotFound is returned when the target message does not exist
	// in the thread.
	ErrMessageNotFound = errors.New("message not found")
)
