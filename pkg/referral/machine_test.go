package referral

import (
	"testing"

	"refersync/pkg/models"
)

func TestAdvanceForwardOnly(t *testing.T) {
	cases := []struct {
		cur, next, want models.ReferralStatus
		applied         bool
	}{
		{models.StatusPending, models.StatusViewed, models.StatusViewed, true},
		{models.StatusViewed, models.StatusResponded, models.StatusResponded, true},
		// reply without an explicit view acknowledgement
		{models.StatusPending, models.StatusResponded, models.StatusResponded, true},
		// regressions are ignored
		{models.StatusResponded, models.StatusViewed, models.StatusResponded, false},
		{models.StatusViewed, models.StatusPending, models.StatusViewed, false},
		{models.StatusResponded, models.StatusPending, models.StatusResponded, false},
		// same status is a no-op
		{models.StatusViewed, models.StatusViewed, models.StatusViewed, false},
	}
	for _, c := range cases {
		got, applied := Advance(c.cur, c.next)
		if got != c.want || applied != c.applied {
			t.Fatalf("Advance(%s, %s) = (%s, %v), want (%s, %v)", c.cur, c.next, got, applied, c.want, c.applied)
		}
	}
}

func TestAdvanceRecoversUnknownStoredStatus(t *testing.T) {
	got, applied := Advance(models.ReferralStatus("garbled"), models.StatusViewed)
	if !applied || got != models.StatusViewed {
		t.Fatalf("unknown stored status must recover as pending: got (%s, %v)", got, applied)
	}
	got, applied = Advance(models.StatusViewed, models.ReferralStatus("garbled"))
	if applied || got != models.StatusViewed {
		t.Fatalf("unknown target must be ignored: got (%s, %v)", got, applied)
	}
}
