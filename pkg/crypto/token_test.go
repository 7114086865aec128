package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateInviteTokenLengthAndAlphabet(t *testing.T) {
	token, err := GenerateInviteToken(32)
	require.NoError(t, err)
	require.Len(t, token, 32)

	for _, r := range token {
		isUpper := r >= 'A' && r <= 'Z'
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		require.True(t, isUpper || isLower || isDigit, "unexpected symbol %q", r)
	}
}

func TestGenerateInviteTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		token, err := GenerateInviteToken(32)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup, "duplicate token generated")
		seen[token] = struct{}{}
	}
}

func TestGenerateInviteTokenRejectsZeroLength(t *testing.T) {
	_, err := GenerateInviteToken(0)
	require.Error(t, err)
}

func TestGenerateTokenURLSafe(t *testing.T) {
	token, err := GenerateToken(48)
	require.NoError(t, err)
	require.NotContains(t, token, "+")
	require.NotContains(t, token, "/")
}
