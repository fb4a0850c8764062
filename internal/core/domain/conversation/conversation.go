package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Reply is what the assistant returns for one turn.
type Reply struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Language  string `json:"language"`
	Cached    bool   `json:"cached"`
}

// VoiceReply extends Reply with the transcript that produced it and the
// synthesized audio for playback.
type VoiceReply struct {
	Reply
	Transcript string `json:"transcript"`
	Audio      []byte `json:"audio,omitempty"`
}

// CachedReply is the payload stored in the response cache tier.
type CachedReply struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// TurnKind distinguishes usage records by input modality.
type TurnKind string

const (
	TurnText  TurnKind = "text"
	TurnVoice TurnKind = "voice"
)

// UsageRecord is one row of the per-turn usage log.
type UsageRecord struct {
	ID            uuid.UUID `json:"id" db:"id"`
	SessionID     string    `json:"session_id" db:"session_id"`
	Kind          TurnKind  `json:"kind" db:"kind"`
	Language      string    `json:"language" db:"language"`
	ResponseCache bool      `json:"response_cache_hit" db:"response_cache_hit"`
	SpeechCache   bool      `json:"speech_cache_hit" db:"speech_cache_hit"`
	LatencyMS     int64     `json:"latency_ms" db:"latency_ms"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// UsageFilter narrows usage-log queries.
type UsageFilter struct {
	SessionID string
	Kind      TurnKind
	Since     time.Time
	Limit     int
	Offset    int
}
