package models

import "time"

// TimeLayout is the timestamp encoding used in the persisted ledger.
const TimeLayout = time.RFC3339Nano

// naiveLayout reads zoneless stamps such as 2026-03-01T12:00:00.123456
// written by older ledgers. Fractional seconds are optional.
const naiveLayout = "2006-01-02T15:04:05"

// ParseStamp reads a ledger timestamp. Stamps without a zone are local time.
func ParseStamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(naiveLayout, s, time.Local)
}

type TokenState string

const (
	TokenStateActive  TokenState = "active"
	TokenStateRevoked TokenState = "revoked"
	TokenStateExpired TokenState = "expired"
	TokenStateDamaged TokenState = "damaged"
)

// TokenRecord is the persisted form of an access token. Timestamps stay as
// strings so an unparsable expiry can be detected and treated as invalid.
type TokenRecord struct {
	UserID  string `json:"user_id"`
	Created string `json:"created"`
	Expires string `json:"expires"`
	Active  bool   `json:"active"`
}

func (r TokenRecord) ExpiresAt() (time.Time, error) {
	return ParseStamp(r.Expires)
}

func (r TokenRecord) CreatedAt() (time.Time, error) {
	return ParseStamp(r.Created)
}

// State classifies the record at the given instant.
func (r TokenRecord) State(now time.Time) TokenState {
	expires, err := r.ExpiresAt()
	if err != nil {
		return TokenStateDamaged
	}
	if !now.Before(expires) {
		return TokenStateExpired
	}
	if !r.Active {
		return TokenStateRevoked
	}
	return TokenStateActive
}

// AccessToken is a decoded ledger entry.
type AccessToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Active    bool
	State     TokenState
}

// DaysLeft is the number of whole days until expiry.
func (t AccessToken) DaysLeft(now time.Time) int {
	if !now.Before(t.ExpiresAt) {
		return 0
	}
	return int(t.ExpiresAt.Sub(now) / (24 * time.Hour))
}
