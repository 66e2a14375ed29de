package models

// Participant identifies one party in a conversation. Role is descriptive
// only; no enforcement happens at this layer.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role,omitempty"`
}
