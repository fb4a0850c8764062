package ports

import (
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
)

// TierStats is a read-only snapshot of one cache tier.
type TierStats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// CacheStats groups the snapshots of all three tiers.
type CacheStats struct {
	Responses   TierStats `json:"responses"`
	Transcripts TierStats `json:"transcripts"`
	Languages   TierStats `json:"languages"`
}

// AssistantCache is the in-process multi-tier cache consumed by request
// handlers to short-circuit provider calls. A miss is a normal outcome, not
// an error; none of these operations can fail.
type AssistantCache interface {
	GetResponse(message, sessionID string) (conversation.CachedReply, bool)
	SetResponse(message, sessionID string, reply conversation.CachedReply)

	GetTranscript(audio []byte) (speech.Transcript, bool)
	SetTranscript(audio []byte, t speech.Transcript)

	GetLanguage(audio []byte) (speech.LanguageDetection, bool)
	SetLanguage(audio []byte, d speech.LanguageDetection)

	// ClearAll empties every tier immediately.
	ClearAll()
	// Prune relieves memory pressure: any tier above ~90% of capacity drops
	// its oldest quarter regardless of TTL. Returns entries removed.
	Prune() int
	// Sweep physically removes expired entries. Returns entries removed.
	Sweep() int
	Stats() CacheStats
}
