package models

import "time"

// Message is the wire/storage shape of one conversation entry. Threads are
// stored as an ordered JSON array of these records; order is append order
// and is never rewritten.
type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	SenderRole string `json:"senderRole,omitempty"`
	Content    string `json:"content"`
	// TS is the orderable send time (ns since epoch). Display formatting is
	// a separate concern; see SentAt/FormatSentAt.
	TS   int64 `json:"ts"`
	Read bool  `json:"read"`
	// Optional single attachment carried with the message.
	File *Attachment `json:"file,omitempty"`
}

// SentAt returns the send time as a time.Time.
func (m Message) SentAt() time.Time { return time.Unix(0, m.TS).UTC() }

// FormatSentAt renders the send time for display. Storage keeps the
// orderable ts field only.
func (m Message) FormatSentAt() string { return m.SentAt().Format(time.RFC3339) }

// Attachment is a file carried inline with a message. Data is the
// base64-encoded payload; Size is the decoded payload size in bytes and is
// validated against the configured cap before any persistence.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}
