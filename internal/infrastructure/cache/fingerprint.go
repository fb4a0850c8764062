package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// fingerprintEdge is how many bytes from each end of an audio payload feed
// the fingerprint. Hashing only the edges bounds the cost on large uploads;
// two recordings that differ only in the middle bytes will collide, which is
// an accepted property of the design.
const fingerprintEdge = 1024

// Fingerprint derives the cache-key digest for an audio payload from its
// first and last fingerprintEdge bytes. Payloads at most twice the edge size
// are hashed whole.
func Fingerprint(audio []byte) string {
	h := sha256.New()
	if len(audio) <= 2*fingerprintEdge {
		h.Write(audio)
	} else {
		h.Write(audio[:fingerprintEdge])
		h.Write(audio[len(audio)-fingerprintEdge:])
	}
	var sz [8]byte
	binary.BigEndian.PutUint64(sz[:], uint64(len(audio)))
	h.Write(sz[:])
	return hex.EncodeToString(h.Sum(nil))
}

// ResponseKey derives the cache key for a (message, session) pair. Each part
// is length-prefixed so distinct pairs can never produce the same digest by
// concatenation.
func ResponseKey(message, sessionID string) string {
	h := sha256.New()
	var sz [8]byte
	binary.BigEndian.PutUint64(sz[:], uint64(len(message)))
	h.Write(sz[:])
	h.Write([]byte(message))
	binary.BigEndian.PutUint64(sz[:], uint64(len(sessionID)))
	h.Write(sz[:])
	h.Write([]byte(sessionID))
	return hex.EncodeToString(h.Sum(nil))
}
