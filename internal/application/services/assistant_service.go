package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/cache"
)

// AssistantService answers conversation turns. Each turn consults the cache
// engine first; on a miss it goes to the providers, acquiring a speech
// connection from the pool for audio work. Provider errors propagate
// unchanged and are never cached.
type AssistantService struct {
	cache    ports.AssistantCache
	pool     ports.ConnectionPool
	agent    ports.ConversationAgent
	sessions ports.SessionService
	usage    ports.UsageRepository
	logger   *logrus.Logger

	// coalesces concurrent identical cache misses into one agent call
	sf singleflight.Group
}

func NewAssistantService(
	assistantCache ports.AssistantCache,
	pool ports.ConnectionPool,
	agent ports.ConversationAgent,
	sessions ports.SessionService,
	usage ports.UsageRepository,
	logger *logrus.Logger,
) *AssistantService {
	return &AssistantService{
		cache:    assistantCache,
		pool:     pool,
		agent:    agent,
		sessions: sessions,
		usage:    usage,
		logger:   logger,
	}
}

// HandleText answers one text turn.
func (s *AssistantService) HandleText(ctx context.Context, sessionID, message string) (*conversation.Reply, error) {
	start := time.Now()
	reply, cached, err := s.respond(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}
	s.recordUsage(ctx, &conversation.UsageRecord{
		SessionID:     sessionID,
		Kind:          conversation.TurnText,
		Language:      reply.Language,
		ResponseCache: cached,
		LatencyMS:     time.Since(start).Milliseconds(),
	})
	return reply, nil
}

// respond is the shared text path: response cache, then the agent behind
// singleflight.
func (s *AssistantService) respond(ctx context.Context, sessionID, message string) (*conversation.Reply, bool, error) {
	if v, ok := s.cache.GetResponse(message, sessionID); ok {
		return &conversation.Reply{
			SessionID: sessionID,
			Text:      v.Text,
			Language:  v.Language,
			Cached:    true,
		}, true, nil
	}

	key := cache.ResponseKey(message, sessionID)
	res, err, _ := s.sf.Do(key, func() (any, error) {
		if v, ok := s.cache.GetResponse(message, sessionID); ok {
			return v, nil
		}
		threadID, err := s.sessions.EnsureThread(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		text, err := s.agent.Converse(ctx, threadID, message)
		if err != nil {
			return nil, err
		}
		v := conversation.CachedReply{Text: text, Language: detectReplyLanguage(text)}
		s.cache.SetResponse(message, sessionID, v)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	v, ok := res.(conversation.CachedReply)
	if !ok {
		return nil, false, fmt.Errorf("unexpected type from singleflight result")
	}
	return &conversation.Reply{
		SessionID: sessionID,
		Text:      v.Text,
		Language:  v.Language,
	}, false, nil
}

// HandleVoice answers one audio turn: transcribe (cached by audio
// fingerprint), converse, synthesize.
func (s *AssistantService) HandleVoice(ctx context.Context, sessionID string, audio []byte, gender speech.VoiceGender) (*conversation.VoiceReply, error) {
	start := time.Now()

	transcript, speechCached, err := s.transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return nil, ports.ErrNoSpeech
	}

	reply, responseCached, err := s.respond(ctx, sessionID, transcript.Text)
	if err != nil {
		return nil, err
	}

	replyLang := transcript.Language
	audioOut, err := s.synthesize(ctx, reply.Text, replyLang, gender)
	if err != nil {
		return nil, err
	}

	s.recordUsage(ctx, &conversation.UsageRecord{
		SessionID:     sessionID,
		Kind:          conversation.TurnVoice,
		Language:      replyLang,
		ResponseCache: responseCached,
		SpeechCache:   speechCached,
		LatencyMS:     time.Since(start).Milliseconds(),
	})

	return &conversation.VoiceReply{
		Reply: conversation.Reply{
			SessionID: sessionID,
			Text:      reply.Text,
			Language:  replyLang,
			Cached:    responseCached,
		},
		Transcript: transcript.Text,
		Audio:      audioOut,
	}, nil
}

// transcribe resolves the transcript for the audio, consulting the
// transcript and language tiers before acquiring a pool connection.
func (s *AssistantService) transcribe(ctx context.Context, audio []byte) (speech.Transcript, bool, error) {
	if t, ok := s.cache.GetTranscript(audio); ok {
		return t, true, nil
	}

	// The language tier outlives the transcript tier, so a repeated utterance
	// whose transcript has expired often still has a detection on record. Pin
	// recognition to it instead of auto-detecting again.
	var hint string
	if d, ok := s.cache.GetLanguage(audio); ok {
		hint = d.Language
	}

	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		return speech.Transcript{}, false, fmt.Errorf("speech connection unavailable: %w", err)
	}
	defer s.pool.Release(lease)

	t, err := lease.Conn().Transcribe(ctx, audio, hint)
	if err != nil {
		return speech.Transcript{}, false, err
	}
	if strings.TrimSpace(t.Text) != "" {
		s.cache.SetTranscript(audio, t)
		s.cache.SetLanguage(audio, speech.LanguageDetection{Language: t.Language, Confidence: t.Confidence})
	}
	return t, false, nil
}

func (s *AssistantService) synthesize(ctx context.Context, text, language string, gender speech.VoiceGender) ([]byte, error) {
	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech connection unavailable: %w", err)
	}
	defer s.pool.Release(lease)
	return lease.Conn().Synthesize(ctx, text, language, gender)
}

// recordUsage is best-effort: a failed insert is logged, never surfaced.
func (s *AssistantService) recordUsage(ctx context.Context, rec *conversation.UsageRecord) {
	if s.usage == nil {
		return
	}
	if err := s.usage.Record(ctx, rec); err != nil && s.logger != nil {
		s.logger.WithError(err).WithField("session_id", rec.SessionID).Warn("usage record insert failed")
	}
}

// detectReplyLanguage tags the reply by script: any Devanagari rune marks the
// turn as Nepali.
func detectReplyLanguage(text string) string {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return speech.LanguageNepali
		}
	}
	return speech.LanguageEnglish
}

var _ ports.AssistantService = (*AssistantService)(nil)
