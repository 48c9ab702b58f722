package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, exp, err := issuer.Generate(7, "admin", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Username)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Nanosecond)
	token, _, err := issuer.Generate(1, "admin", "admin")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestTokenBlacklistInMemory(t *testing.T) {
	bl := NewTokenBlacklist(NewCache(nil))
	assert.False(t, bl.IsRevoked("a"))

	bl.Revoke("a", time.Now().Add(time.Hour))
	assert.True(t, bl.IsRevoked("a"))

	bl.Revoke("b", time.Now().Add(-time.Second))
	assert.False(t, bl.IsRevoked("b"))
}

func TestPasswordHashing(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("long-enough")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "long-enough"))
	assert.False(t, CheckPassword(hash, "wrong-one"))
}

func TestLoginGuardInMemory(t *testing.T) {
	g := NewLoginGuard(NewCache(nil), 3, time.Minute)
	now := time.Now()
	g.now = func() time.Time { return now }

	assert.False(t, g.RecordFailure("1.2.3.4"))
	assert.False(t, g.RecordFailure("1.2.3.4"))
	g.Reset("1.2.3.4")
	assert.False(t, g.RecordFailure("1.2.3.4"))
	assert.False(t, g.RecordFailure("1.2.3.4"))
	assert.False(t, g.Banned("1.2.3.4"))

	assert.True(t, g.RecordFailure("1.2.3.4"))
	assert.True(t, g.Banned("1.2.3.4"))
	assert.False(t, g.Banned("5.6.7.8"))

	now = now.Add(2 * time.Minute)
	assert.False(t, g.Banned("1.2.3.4"))
}

func TestLoginGuardDisabled(t *testing.T) {
	g := NewLoginGuard(nil, 0, time.Minute)
	for i := 0; i < 10; i++ {
		assert.False(t, g.RecordFailure("ip"))
	}
	assert.False(t, g.Banned("ip"))

	var nilGuard *LoginGuard
	assert.False(t, nilGuard.Banned("ip"))
	nilGuard.Reset("ip")
}
