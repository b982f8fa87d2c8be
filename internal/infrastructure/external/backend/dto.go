package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/travy/admin-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIRE PRIMITIVES
// ══════════════════════════════════════════════════════════════════════════════

// ID accepts both JSON strings and numbers; the backend is not consistent.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Count is a non-fractional number the backend may send as 12, 12.0 or "12".
// Fractions are truncated; null and empty strings are zero.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	*c = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw = strings.TrimSpace(raw); raw == "" {
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("count must be a number: %w", err)
	}
	*c = Count(d.IntPart())
	return nil
}

// Timestamp is an optional instant sent as an ISO string or epoch milliseconds.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. Unparsable values are treated as absent.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := timeutil.ParseTimestamp(raw)
	if err != nil {
		return nil
	}
	t.Time, t.Valid = parsed, true
	return nil
}

// Ptr returns nil for an absent timestamp.
func (t Timestamp) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD DTOs
// ══════════════════════════════════════════════════════════════════════════════

// UserDTO is a user as returned by GET /users and GET /influencer/referred-users.
type UserDTO struct {
	ID         ID              `json:"id"`
	Name       string          `json:"name,omitempty"`
	Email      string          `json:"email,omitempty"`
	Status     string          `json:"status,omitempty"`
	CreatedAt  Timestamp       `json:"createdAt"`
	SignUpDate Timestamp       `json:"signUpDate"`
	Reward     decimal.Decimal `json:"reward"`
}

// InfluencerDTO is an influencer as returned by GET /influencers, /influencers/top
// and /influencer/me.
type InfluencerDTO struct {
	ID            ID              `json:"id"`
	Name          string          `json:"name,omitempty"`
	Email         string          `json:"email,omitempty"`
	ReferralCount Count           `json:"referralCount"`
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
	ReferralLink  string          `json:"referralLink,omitempty"`
	CreatedAt     Timestamp       `json:"createdAt"`
	JoinDate      Timestamp       `json:"joinDate"`
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH DTOs
// ══════════════════════════════════════════════════════════════════════════════

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResponse is the body the backend answers a login with.
type LoginResponse struct {
	Token string `json:"token"`
}

// errorBody is the shape of a JSON error response.
type errorBody struct {
	Message string `json:"message"`
}
