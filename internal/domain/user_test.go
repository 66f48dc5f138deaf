package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_Status(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Minute)

	var missing *RefreshToken
	assert.Equal(t, TokenUnknown, missing.Status(now))
	assert.Equal(t, TokenValid, (&RefreshToken{ExpiresAt: now.Add(time.Hour)}).Status(now))
	assert.Equal(t, TokenExpired, (&RefreshToken{ExpiresAt: now}).Status(now))
	assert.Equal(t, TokenUnknown, (&RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}).Status(now))
}

func TestTokenStatus_String(t *testing.T) {
	assert.Equal(t, "valid", TokenValid.String())
	assert.Equal(t, "expired", TokenExpired.String())
	assert.Equal(t, "unknown", TokenUnknown.String())
}

func TestUser_ResetTokenValid(t *testing.T) {
	now := time.Now()
	expires := now.Add(10 * time.Minute)
	u := &User{PasswordResetHash: "abc", PasswordResetExpires: &expires}

	assert.True(t, u.ResetTokenValid("abc", now))
	assert.False(t, u.ResetTokenValid("abd", now))
	assert.False(t, u.ResetTokenValid("abc", expires))
	assert.False(t, (&User{}).ResetTokenValid("", now))
}

func TestUser_Helpers(t *testing.T) {
	u := &User{FirstName: "Ada", LastName: "Lovelace", Role: RoleAdmin}
	assert.Equal(t, "Ada Lovelace", u.FullName())
	assert.True(t, u.IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
}

func TestIsValidEnquiryStatus(t *testing.T) {
	assert.True(t, IsValidEnquiryStatus(EnquiryInProgress))
	assert.False(t, IsValidEnquiryStatus("closed"))
}
