package utils

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// seq reduces collisions when multiple IDs share the same nanosecond
// timestamp within one process.
var seq uint64

// GenMessageID returns a sortable message identifier. The zero-padded
// nanosecond prefix keeps IDs monotonically orderable within a thread;
// the counter suffix breaks ties inside one process.
func GenMessageID() string {
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	return fmt.Sprintf("m%020d-%06d", ts, s)
}

// GenReferralID returns a globally unique referral identifier.
func GenReferralID() string {
	return "ref-" + uuid.NewString()
}
