package domain

import "time"

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered account.
type User struct {
	ID                   string     `json:"id"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Email                string     `json:"email"`
	Mobile               string     `json:"mobile"`
	PasswordHash         string     `json:"-"`
	Role                 string     `json:"role"`
	IsBlocked            bool       `json:"is_blocked"`
	Address              string     `json:"address,omitempty"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetHash    string     `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ResetTokenValid reports whether hash matches an unexpired reset token.
func (u *User) ResetTokenValid(hash string, now time.Time) bool {
	return u.PasswordResetHash != "" &&
		u.PasswordResetHash == hash &&
		u.PasswordResetExpires != nil &&
		now.Before(*u.PasswordResetExpires)
}

// RefreshToken is a stored refresh token. Only the sha256 of the token is kept.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// TokenStatus is the outcome of a refresh token lookup.
type TokenStatus int

const (
	TokenUnknown TokenStatus = iota
	TokenValid
	TokenExpired
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Status classifies t at now. A revoked token is unknown.
func (t *RefreshToken) Status(now time.Time) TokenStatus {
	switch {
	case t == nil || t.RevokedAt != nil:
		return TokenUnknown
	case !now.Before(t.ExpiresAt):
		return TokenExpired
	default:
		return TokenValid
	}
}
