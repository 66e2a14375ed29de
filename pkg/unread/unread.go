package unread

import (
	"refersync/pkg/logger"
	"refersync/pkg/models"
	"refersync/pkg/store"
)

// Repo is the read side of the conversation store the aggregator needs.
type Repo interface {
	Thread(key string) ([]models.Message, error)
}

// Count returns the number of messages in msgs that viewerID has not read.
// A viewer's own messages never count as unread, whatever their flag.
func Count(msgs []models.Message, viewerID string) int {
	n := 0
	for _, m := range msgs {
		if !m.Read && m.SenderID != viewerID {
			n++
		}
	}
	return n
}

// CountFor computes the unread count for one conversation key. Storage
// read failures degrade to zero; badge rendering must never take a whole
// view down.
func CountFor(repo Repo, key, viewerID string) int {
	msgs, err := repo.Thread(key)
	if err != nil {
		logger.Warn("unread_count_degraded", "key", key, "viewer", viewerID, "error", err)
		return 0
	}
	return Count(msgs, viewerID)
}

// ByParticipant returns the unread count the viewer has against each
// counterpart, one store read per pair. Linear in thread length; threads
// are bounded clinical conversations and this is recomputed per sync
// tick.
func ByParticipant(repo Repo, viewerID string, participantIDs []string) map[string]int {
	out := make(map[string]int, len(participantIDs))
	for _, pid := range participantIDs {
		out[pid] = CountFor(repo, store.ThreadKey(viewerID, pid), viewerID)
	}
	return out
}
