package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents account status
type Status string

const (
	StatusActive     Status = "active"
	StatusRestricted Status = "restricted"
	StatusFlagged    Status = "flagged"
)

// Tier buckets a ZimScore for display and product gating.
type Tier string

const (
	TierExcellent Tier = "excellent" // 90+
	TierGood      Tier = "good"      // 70-89
	TierFair      Tier = "fair"      // 50-69
	TierBuilding  Tier = "building"  // below 50
)

// User is the identity read model. Registration, OTP and sessions live
// in the identity provider; the core only reads what it needs.
type User struct {
	ID             uuid.UUID      `db:"id"`
	Email          string         `db:"email"`
	Phone          sql.NullString `db:"phone"`
	Status         Status         `db:"status"`
	CompletedLoans int            `db:"completed_loans"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// ZimScore is the platform credit score record (0-100).
type ZimScore struct {
	UserID    uuid.UUID `db:"user_id"`
	Score     int       `db:"score"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Tier derives the score tier.
func (z *ZimScore) Tier() Tier {
	switch {
	case z.Score >= 90:
		return TierExcellent
	case z.Score >= 70:
		return TierGood
	case z.Score >= 50:
		return TierFair
	default:
		return TierBuilding
	}
}

// IsFirstTimeBorrower reports whether the cold-start ceiling applies.
func (u *User) IsFirstTimeBorrower() bool {
	return u.CompletedLoans == 0
}
