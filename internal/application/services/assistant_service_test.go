package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/application/services"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/cache"
)

type agentMock struct {
	createThreadFn func(ctx context.Context) (string, error)
	converseFn     func(ctx context.Context, threadID, message string) (string, error)
	converseCalls  int64
}

func (m *agentMock) CreateThread(ctx context.Context) (string, error) {
	if m.createThreadFn != nil {
		return m.createThreadFn(ctx)
	}
	return "thread-1", nil
}

func (m *agentMock) Converse(ctx context.Context, threadID, message string) (string, error) {
	atomic.AddInt64(&m.converseCalls, 1)
	if m.converseFn != nil {
		return m.converseFn(ctx, threadID, message)
	}
	return "reply to " + message, nil
}

type sessionsMock struct {
	ensureFn func(ctx context.Context, sessionID string) (string, error)
}

func (m *sessionsMock) EnsureThread(ctx context.Context, sessionID string) (string, error) {
	if m.ensureFn != nil {
		return m.ensureFn(ctx, sessionID)
	}
	return "thread-" + sessionID, nil
}

func (m *sessionsMock) EndSession(ctx context.Context, sessionID string) error { return nil }

type connMock struct {
	transcribeFn func(ctx context.Context, audio []byte, languageHint string) (speech.Transcript, error)
	synthesizeFn func(ctx context.Context, text, language string, gender speech.VoiceGender) ([]byte, error)
}

func (m *connMock) Transcribe(ctx context.Context, audio []byte, languageHint string) (speech.Transcript, error) {
	if m.transcribeFn != nil {
		return m.transcribeFn(ctx, audio, languageHint)
	}
	return speech.Transcript{Text: "hello", Language: speech.LanguageEnglish, Confidence: 0.9}, nil
}

func (m *connMock) Synthesize(ctx context.Context, text, language string, gender speech.VoiceGender) ([]byte, error) {
	if m.synthesizeFn != nil {
		return m.synthesizeFn(ctx, text, language, gender)
	}
	return []byte("audio-bytes"), nil
}

func (m *connMock) Close() error { return nil }

type leaseMock struct{ conn *connMock }

func (l *leaseMock) Conn() ports.SpeechConnection { return l.conn }
func (l *leaseMock) Temporary() bool { return false }

type poolMock struct {
	mu       sync.Mutex
	conn     *connMock
	acquired int
	released int
	fail     bool
}

func (p *poolMock) Acquire(ctx context.Context) (ports.Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("factory down")
	}
	p.acquired++
	return &leaseMock{conn: p.conn}, nil
}

func (p *poolMock) Release(lease ports.Lease) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *poolMock) Stats() ports.PoolStats { return ports.PoolStats{} }
func (p *poolMock) CloseAll() {}

type usageMock struct {
	mu      sync.Mutex
	records []*conversation.UsageRecord
	fail    bool
}

func (m *usageMock) Record(ctx context.Context, rec *conversation.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *usageMock) List(ctx context.Context, _ *conversation.UsageFilter) ([]*conversation.UsageRecord, error) {
	return nil, nil
}

func newAssistant(agent *agentMock, pool *poolMock, usage *usageMock) *services.AssistantService {
	engine := cache.NewEngine(cache.DefaultConfig(), nil)
	var repo ports.UsageRepository
	if usage != nil {
		repo = usage
	}
	return services.NewAssistantService(engine, pool, agent, &sessionsMock{}, repo, nil)
}

func TestHandleTextMissThenHit(t *testing.T) {
	agent := &agentMock{}
	usage := &usageMock{}
	svc := newAssistant(agent, &poolMock{conn: &connMock{}}, usage)

	first, err := svc.HandleText(context.Background(), "sess1", "hello")
	require.NoError(t, err)
	require.Equal(t, "reply to hello", first.Text)
	require.False(t, first.Cached)

	second, err := svc.HandleText(context.Background(), "sess1", "hello")
	require.NoError(t, err)
	require.Equal(t, "reply to hello", second.Text)
	require.True(t, second.Cached)
	require.Equal(t, int64(1), atomic.LoadInt64(&agent.converseCalls))

	// A different session never hits the first session's entry.
	_, err = svc.HandleText(context.Background(), "sess2", "hello")
	require.NoError(t, err)
	require.Equal(t, int64(2), atomic.LoadInt64(&agent.converseCalls))
}

func TestHandleTextAgentErrorPropagatesAndIsNotCached(t *testing.T) {
	boom := errors.New("agent exploded")
	calls := 0
	agent := &agentMock{converseFn: func(ctx context.Context, threadID, message string) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "recovered", nil
	}}
	svc := newAssistant(agent, &poolMock{conn: &connMock{}}, nil)

	_, err := svc.HandleText(context.Background(), "s", "q")
	require.ErrorIs(t, err, boom)

	// The failure was not cached as a success.
	reply, err := svc.HandleText(context.Background(), "s", "q")
	require.NoError(t, err)
	require.Equal(t, "recovered", reply.Text)
}

func TestHandleTextCoalescesConcurrentIdenticalMisses(t *testing.T) {
	agent := &agentMock{converseFn: func(ctx context.Context, threadID, message string) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "slow reply", nil
	}}
	svc := newAssistant(agent, &poolMock{conn: &connMock{}}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := svc.HandleText(context.Background(), "s", "same question")
			require.NoError(t, err)
			require.Equal(t, "slow reply", reply.Text)
		}()
	}
	wg.Wait()
	require.Equal(t, int64(1), atomic.LoadInt64(&agent.converseCalls))
}

func TestHandleVoiceFullFlow(t *testing.T) {
	agent := &agentMock{}
	pool := &poolMock{conn: &connMock{}}
	usage := &usageMock{}
	svc := newAssistant(agent, pool, usage)

	audio := []byte("pcm audio data")
	reply, err := svc.HandleVoice(context.Background(), "sess1", audio, speech.VoiceFemale)
	require.NoError(t, err)
	require.Equal(t, "hello", reply.Transcript)
	require.Equal(t, "reply to hello", reply.Text)
	require.Equal(t, []byte("audio-bytes"), reply.Audio)

	// One acquire for transcription, one for synthesis, both released.
	require.Equal(t, 2, pool.acquired)
	require.Equal(t, 2, pool.released)

	require.Len(t, usage.records, 1)
	require.Equal(t, conversation.TurnVoice, usage.records[0].Kind)
}

func TestHandleVoiceTranscriptCacheSkipsPool(t *testing.T) {
	pool := &poolMock{conn: &connMock{}}
	svc := newAssistant(&agentMock{}, pool, nil)

	audio := []byte("pcm audio data")
	_, err := svc.HandleVoice(context.Background(), "s", audio, speech.VoiceFemale)
	require.NoError(t, err)
	acquiresAfterFirst := pool.acquired

	_, err = svc.HandleVoice(context.Background(), "s", audio, speech.VoiceFemale)
	require.NoError(t, err)

	// Second turn still synthesizes but never transcribes.
	require.Equal(t, acquiresAfterFirst+1, pool.acquired)
	require.Equal(t, pool.acquired, pool.released)
}

// languageTierSpy forces transcript misses while counting language-tier
// reads, which stay backed by the real engine.
type languageTierSpy struct {
	ports.AssistantCache
	langGets int64
}

func (s *languageTierSpy) GetTranscript(audio []byte) (speech.Transcript, bool) {
	return speech.Transcript{}, false
}

func (s *languageTierSpy) GetLanguage(audio []byte) (speech.LanguageDetection, bool) {
	atomic.AddInt64(&s.langGets, 1)
	return s.AssistantCache.GetLanguage(audio)
}

func TestHandleVoicePinsRecognitionToRememberedLanguage(t *testing.T) {
	spy := &languageTierSpy{AssistantCache: cache.NewEngine(cache.DefaultConfig(), nil)}
	var (
		mu    sync.Mutex
		hints []string
	)
	conn := &connMock{transcribeFn: func(ctx context.Context, audio []byte, languageHint string) (speech.Transcript, error) {
		mu.Lock()
		hints = append(hints, languageHint)
		mu.Unlock()
		return speech.Transcript{Text: "namaste", Language: speech.LanguageNepali, Confidence: 0.97}, nil
	}}
	svc := services.NewAssistantService(spy, &poolMock{conn: conn}, &agentMock{}, &sessionsMock{}, nil, nil)

	audio := []byte("pcm audio data")
	_, err := svc.HandleVoice(context.Background(), "s", audio, speech.VoiceFemale)
	require.NoError(t, err)

	// The first turn stored a detection; the forced transcript miss makes
	// the second turn recognize again, now pinned to the stored language.
	_, err = svc.HandleVoice(context.Background(), "s", audio, speech.VoiceFemale)
	require.NoError(t, err)

	require.Equal(t, int64(2), atomic.LoadInt64(&spy.langGets))
	require.Equal(t, []string{"", speech.LanguageNepali}, hints)
}

func TestHandleVoiceNoSpeech(t *testing.T) {
	pool := &poolMock{conn: &connMock{transcribeFn: func(ctx context.Context, audio []byte, languageHint string) (speech.Transcript, error) {
		return speech.Transcript{Text: "   "}, nil
	}}}
	svc := newAssistant(&agentMock{}, pool, nil)

	_, err := svc.HandleVoice(context.Background(), "s", []byte("silence"), speech.VoiceFemale)
	require.ErrorIs(t, err, ports.ErrNoSpeech)
	require.Equal(t, pool.acquired, pool.released)
}

func TestHandleVoiceTranscribeErrorReleasesSlot(t *testing.T) {
	boom := errors.New("provider 500")
	pool := &poolMock{conn: &connMock{transcribeFn: func(ctx context.Context, audio []byte, languageHint string) (speech.Transcript, error) {
		return speech.Transcript{}, boom
	}}}
	svc := newAssistant(&agentMock{}, pool, nil)

	_, err := svc.HandleVoice(context.Background(), "s", []byte("clip"), speech.VoiceFemale)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, pool.acquired)
	require.Equal(t, 1, pool.released)
}

func TestUsageInsertFailureDoesNotFailTurn(t *testing.T) {
	usage := &usageMock{fail: true}
	svc := newAssistant(&agentMock{}, &poolMock{conn: &connMock{}}, usage)

	reply, err := svc.HandleText(context.Background(), "s", "hi")
	require.NoError(t, err)
	require.Equal(t, "reply to hi", reply.Text)
}
