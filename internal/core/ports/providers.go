package ports

import (
	"context"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
)

// SpeechConnection is one pre-authenticated handle to the speech provider.
// Handles are expensive to open (token fetch) and are therefore pooled.
// Implementations must be safe to Close more than once.
type SpeechConnection interface {
	// Transcribe converts recorded audio to text. A non-empty languageHint
	// narrows recognition to that locale; empty means auto-detect. An empty
	// transcript with a nil error means the provider heard no speech.
	Transcribe(ctx context.Context, audio []byte, languageHint string) (speech.Transcript, error)
	// Synthesize renders text into spoken audio in the given language/voice.
	Synthesize(ctx context.Context, text, language string, gender speech.VoiceGender) ([]byte, error)
	Close() error
}

// ConversationAgent is the hosted LLM agent. The provider keeps history per
// thread; callers only hold the thread id.
type ConversationAgent interface {
	CreateThread(ctx context.Context) (string, error)
	Converse(ctx context.Context, threadID, message string) (string, error)
}
