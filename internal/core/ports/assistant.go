package ports

import (
	"context"
	"errors"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
)

// ErrNoSpeech means the provider produced no usable transcript from the
// uploaded audio.
var ErrNoSpeech = errors.New("no speech detected in audio")

// AssistantService answers one conversation turn, consulting the cache
// engine first and the external providers on a miss.
type AssistantService interface {
	HandleText(ctx context.Context, sessionID, message string) (*conversation.Reply, error)
	HandleVoice(ctx context.Context, sessionID string, audio []byte, gender speech.VoiceGender) (*conversation.VoiceReply, error)
}

// SessionService resolves the provider thread backing a caller session,
// creating it race-safely on first use.
type SessionService interface {
	EnsureThread(ctx context.Context, sessionID string) (string, error)
	EndSession(ctx context.Context, sessionID string) error
}
