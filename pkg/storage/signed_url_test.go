package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("req-1", "https://files.example.com/r1.csv?sig=a.b")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	requestID, target, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "req-1", requestID)
	require.Equal(t, "https://files.example.com/r1.csv?sig=a.b", target)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("req-1", "https://files.example.com/r1.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = signer.Parse(token)
	require.EqualError(t, err, "token expired")
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("req-1", "https://files.example.com/r1.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	other, _, err := signer.Generate("req-1", "https://evil.example.com/x")
	require.NoError(t, err)
	parts[2] = strings.Split(other, ".")[2]

	_, _, err = signer.Parse(strings.Join(parts, "."))
	require.EqualError(t, err, "invalid token signature")

	_, _, err = NewSignedURLSigner("other", time.Hour).Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerRequiresInputs(t *testing.T) {
	_, _, err := NewSignedURLSigner("secret", time.Hour).Generate("", "https://x")
	require.Error(t, err)
	_, _, err = NewSignedURLSigner("", time.Hour).Generate("req", "https://x")
	require.Error(t, err)
	_, _, err = NewSignedURLSigner("secret", time.Hour).Parse("bad")
	require.Error(t, err)
}
