package qrtoken

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, expiresAt, err := signer.Issue("sub-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.After(time.Now()))

	id, exp, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "sub-123", id)
	require.WithinDuration(t, expiresAt, exp, time.Second)
}

func TestSignerRejectsTampering(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Issue("sub-123")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// re-pointing the token at a different submission must fail
	other, _, err := signer.Issue("sub-456")
	require.NoError(t, err)
	forged := strings.Split(other, ".")[0] + "." + parts[1] + "." + parts[2]
	_, _, err = signer.Parse(forged, false)
	require.Error(t, err)
}

func TestSignerRejectsWrongSecret(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Issue("sub-123")
	require.NoError(t, err)

	otherSigner := NewSigner("different", time.Hour)
	_, _, err = otherSigner.Parse(token, false)
	require.Error(t, err)
}

func TestSignerExpiry(t *testing.T) {
	signer := NewSigner("secret", -time.Minute)
	token, _, err := signer.Issue("sub-123")
	require.NoError(t, err)

	_, _, err = signer.Parse(token, false)
	require.Error(t, err)

	id, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "sub-123", id)
}

func TestSignerRejectsGarbage(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	for _, raw := range []string{"", "abc", "a.b", "a.b.c.d", "!!!.12.sig"} {
		_, _, err := signer.Parse(raw, false)
		require.Error(t, err, raw)
	}
}
