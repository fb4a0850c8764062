package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
)

func TestEngineResponseRoundtrip(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	e.SetResponse("hello", "sess1", conversation.CachedReply{Text: "hi"})

	v, ok := e.GetResponse("hello", "sess1")
	require.True(t, ok)
	require.Equal(t, "hi", v.Text)

	// Same message, different session: miss.
	_, ok = e.GetResponse("hello", "sess2")
	require.False(t, ok)
}

func TestEngineTranscriptByFingerprint(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	audio := make([]byte, 4096)
	for i := range audio {
		audio[i] = byte(i % 251)
	}
	e.SetTranscript(audio, speech.Transcript{Text: "नमस्ते", Language: speech.LanguageNepali, Confidence: 0.92})

	// A re-upload that differs only in the middle bytes hits the same entry.
	reupload := make([]byte, len(audio))
	copy(reupload, audio)
	reupload[2048] ^= 0xFF

	got, ok := e.GetTranscript(reupload)
	require.True(t, ok)
	require.Equal(t, "नमस्ते", got.Text)
	require.Equal(t, speech.LanguageNepali, got.Language)
}

func TestEngineLanguageTierIndependent(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	audio := []byte("some audio payload")
	e.SetLanguage(audio, speech.LanguageDetection{Language: speech.LanguageEnglish, Confidence: 0.8})

	d, ok := e.GetLanguage(audio)
	require.True(t, ok)
	require.Equal(t, speech.LanguageEnglish, d.Language)

	// Language entry does not imply a transcript entry.
	_, ok = e.GetTranscript(audio)
	require.False(t, ok)
}

func TestEngineClearAll(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	audio := []byte("clip")
	e.SetResponse("m", "s", conversation.CachedReply{Text: "r"})
	e.SetTranscript(audio, speech.Transcript{Text: "t"})
	e.SetLanguage(audio, speech.LanguageDetection{Language: speech.LanguageEnglish})

	e.ClearAll()

	st := e.Stats()
	require.Equal(t, 0, st.Responses.Size)
	require.Equal(t, 0, st.Transcripts.Size)
	require.Equal(t, 0, st.Languages.Size)
}

func TestEnginePruneRelievesPressure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResponseCapacity = 100
	e := NewEngine(cfg, nil)
	for i := 0; i < 95; i++ {
		e.SetResponse(fmt.Sprintf("m%d", i), "s", conversation.CachedReply{Text: "r"})
	}

	removed := e.Prune()
	require.Equal(t, 23, removed)
	require.Equal(t, 72, e.Stats().Responses.Size)
}

func TestEngineSweepRemovesExpired(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TranscriptTTL = time.Minute
	e := NewEngine(cfg, nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.transcripts.now = func() time.Time { return now }

	e.SetTranscript([]byte("a"), speech.Transcript{Text: "a"})
	now = now.Add(2 * time.Minute)

	removed := e.Sweep()
	require.Equal(t, 1, removed)
	require.Equal(t, 0, e.Stats().Transcripts.Size)
}

func TestEngineStatsCounters(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	e.SetResponse("m", "s", conversation.CachedReply{Text: "r"})
	e.GetResponse("m", "s")
	e.GetResponse("m", "other")

	st := e.Stats()
	require.Equal(t, uint64(1), st.Responses.Hits)
	require.Equal(t, uint64(1), st.Responses.Misses)
	require.Equal(t, 100, st.Responses.Capacity)
}
