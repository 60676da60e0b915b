package store_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sml/internal/domain"
	"sml/internal/services/prekey"
	"sml/internal/store"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func sampleSnapshot(t *testing.T) store.Snapshot {
	t.Helper()
	pk, err := prekey.New(testLogger(), 3)
	require.NoError(t, err)
	return store.Snapshot{PreKeys: pk.Snapshot()}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	snap := sampleSnapshot(t)

	blob, err := store.Encode(snap, "correct horse")
	require.NoError(t, err)

	got, err := store.Decode(blob, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, snap.PreKeys.Identity, got.PreKeys.Identity)
	assert.Len(t, got.PreKeys.OneTime, 3)

	// The restored pre-key service behaves like the original.
	r := prekey.Restore(testLogger(), got.PreKeys)
	assert.Equal(t, 3, r.PoolSize())
}

func TestDecode_WrongPassphrase(t *testing.T) {
	blob, err := store.Encode(sampleSnapshot(t), "right")
	require.NoError(t, err)

	_, err = store.Decode(blob, "wrong")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestDecode_Tampered(t *testing.T) {
	blob, err := store.Encode(sampleSnapshot(t), "pass")
	require.NoError(t, err)

	for _, i := range []int{0, 16, len(blob) - 1} {
		tampered := append([]byte(nil), blob...)
		tampered[i] ^= 1
		_, err := store.Decode(tampered, "pass")
		assert.ErrorIs(t, err, domain.ErrAuthenticationFailed, "flipped byte %d", i)
	}
}

func TestDecode_Truncated(t *testing.T) {
	_, err := store.Decode([]byte("short"), "pass")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEncode_FreshSaltPerCall(t *testing.T) {
	snap := sampleSnapshot(t)
	b1, err := store.Encode(snap, "pass")
	require.NoError(t, err)
	b2, err := store.Encode(snap, "pass")
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2, "identical state must never encrypt identically")
}
