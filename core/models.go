package core

import (
	"time"
)

// Analysis status vocabulary. Earlier revisions of the SOC tooling mixed
// several vocabularies; this is the canonical one.
const (
	StatusUndetermined  = "À CHOISIR"
	StatusFalsePositive = "Faux positif"
	StatusTruePositive  = "Vrai positif"
)

// NormalizeStatus maps a free-form status string onto the canonical
// vocabulary. Unrecognized or empty values default to the undetermined
// sentinel rather than being rejected.
func NormalizeStatus(s string) string {
	switch s {
	case StatusFalsePositive, StatusTruePositive, StatusUndetermined:
		return s
	}
	return StatusUndetermined
}

// Pattern is a named, deduplicated security-event category holding the
// latest analyst judgment. Descriptive fields are overwritten on every
// subsequent encounter of the same name (last-write-wins).
type Pattern struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Feedback    string    `json:"feedback,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	UserID      int64     `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Analysis is one immutable record of a single analysis run. Pattern name,
// summary and technical text are denormalized so history stays faithful
// even if the pattern is later edited.
type Analysis struct {
	ID            int64     `json:"id"`
	Payload       string    `json:"payload"`
	PatternID     int64     `json:"pattern_id"`
	PatternName   string    `json:"pattern_name"`
	Summary       string    `json:"summary"`
	Facts         string    `json:"facts"`
	Technical     string    `json:"technical"`
	Result        string    `json:"result"`
	Justification string    `json:"justification,omitempty"`
	Report        string    `json:"report"`
	Status        string    `json:"status"`
	Tags          string    `json:"tags,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// User is an analyst account. APIKey, when set, overrides the default
// oracle credential for that user's analysis requests.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role"`
	APIKey       string    `json:"-"`
	Photo        string    `json:"photo,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// AuditEntry is an append-only audit record. Entries are never updated or
// deleted individually, only bulk-cleared.
type AuditEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
