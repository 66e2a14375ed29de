package referral

import "refersync/pkg/models"

// statusRank orders referral progress. Transitions only move up this
// ordering; anything else is ignored so callers never observe a status
// regression.
var statusRank = map[models.ReferralStatus]int{
	models.StatusPending:   0,
	models.StatusViewed:    1,
	models.StatusResponded: 2,
}

// Advance returns the status after attempting cur -> next and whether the
// transition applied. Backward and unknown transitions are no-ops, not
// errors. The direct pending -> responded shortcut is deliberate: a reply
// implies the receiver read the thread.
func Advance(cur, next models.ReferralStatus) (models.ReferralStatus, bool) {
	cr, ok := statusRank[cur]
	if !ok {
		// unknown stored status: treat as pending so the record can recover
		cur, cr = models.StatusPending, 0
	}
	nr, ok := statusRank[next]
	if !ok {
		return cur, false
	}
	if nr <= cr {
		return cur, false
	}
	return next, true
}
