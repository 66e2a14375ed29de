package models

// ReferralStatus is the derived progress of a referral. Transitions only
// move forward under pending < viewed < responded.
type ReferralStatus string

const (
	StatusPending   ReferralStatus = "pending"
	StatusViewed    ReferralStatus = "viewed"
	StatusResponded ReferralStatus = "responded"
)

// ReferralKind selects the delivery mode chosen at creation time.
type ReferralKind string

const (
	KindPrintable ReferralKind = "printable"
	KindDigital   ReferralKind = "digital"
)

// Referral records one patient being routed from a referring doctor to a
// receiving doctor. Referrals are append-only: they are never deleted and
// only Status mutates after creation.
type Referral struct {
	ID                  string         `json:"id"`
	PatientID           string         `json:"patientId"`
	PatientName         string         `json:"patientName"`
	Specialty           string         `json:"specialty"`
	Kind                ReferralKind   `json:"type"`
	ReferringDoctorID   string         `json:"referringDoctorId"`
	ReferringDoctorName string         `json:"referringDoctorName,omitempty"`
	ReceivingDoctorID   string         `json:"receivingDoctorId,omitempty"`
	ReceivingDoctorName string         `json:"receivingDoctorName,omitempty"`
	CreatedTS           int64          `json:"created_ts"`
	Status              ReferralStatus `json:"status"`
	// ConversationKey links a digital referral to its thread; empty for
	// printable referrals.
	ConversationKey string `json:"conversationKey,omitempty"`
	// UnreadMessages is derived and advisory only; it is filled on read
	// paths and never persisted as truth.
	UnreadMessages int `json:"unreadMessages,omitempty"`
}
