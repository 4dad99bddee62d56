package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestTokenRoundTripCarriesScope(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	officer := domain.Officer{ID: "off-1", Role: domain.RoleWardOfficer, WardID: 14, ZoneID: 2, DepartmentID: "D01"}

	token, exp, err := tm.GenerateToken(officer)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, officer.Actor(), claims.Actor())
}

func TestParseTokenRejects(t *testing.T) {
	officer := domain.Officer{ID: "off-2", Role: domain.RoleCommissioner}
	issued := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	good := NewTokenManager("secret", time.Hour)
	good.now = func() time.Time { return issued }
	token, _, err := good.GenerateToken(officer)
	require.NoError(t, err)

	cases := []struct {
		name   string
		secret string
		at     time.Time
		token  string
	}{
		{name: "wrong secret", secret: "other", at: issued, token: token},
		{name: "expired", secret: "secret", at: issued.Add(2 * time.Hour), token: token},
		{name: "garbage", secret: "secret", at: issued, token: "not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tm := NewTokenManager(tc.secret, time.Hour)
			tm.now = func() time.Time { return tc.at }
			_, err := tm.ParseToken(tc.token)
			assert.Error(t, err)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}
