package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, expiresAt, err := signer.Generate("berkas", "42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "berkas", claims.Kind)
	require.Equal(t, "42", claims.Ref)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.now = func() time.Time { return now }

	token, _, err := signer.Generate("berkas", "42")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	claims, err := signer.Parse(token)
	require.ErrorIs(t, err, ErrLinkExpired)
	require.Equal(t, "42", claims.Ref)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("berkas", "42")
	require.NoError(t, err)

	_, err = NewSignedURLSigner("other", time.Minute).Parse(token)
	require.ErrorIs(t, err, ErrLinkInvalid)

	_, err = signer.Parse("berkas.123.NDI")
	require.ErrorIs(t, err, ErrLinkInvalid)
}
