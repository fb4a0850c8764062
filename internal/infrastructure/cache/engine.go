package cache

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// Config carries per-tier capacity and TTL bounds. TTLs are intentionally
// short: agent knowledge, detected language and raw speech all go stale
// quickly, and re-recorded audio makes old transcripts low-value.
type Config struct {
	ResponseCapacity   int
	ResponseTTL        time.Duration
	TranscriptCapacity int
	TranscriptTTL      time.Duration
	LanguageCapacity   int
	LanguageTTL        time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		ResponseCapacity:   100,
		ResponseTTL:        5 * time.Minute,
		TranscriptCapacity: 30,
		TranscriptTTL:      time.Minute,
		LanguageCapacity:   50,
		LanguageTTL:        2 * time.Minute,
	}
}

// Engine is the three-tier assistant cache: replies keyed by
// (message, session), transcripts and language detections keyed by audio
// fingerprint. Tiers are independent; no operation takes more than one tier
// lock at a time.
type Engine struct {
	responses   *tier[conversation.CachedReply]
	transcripts *tier[speech.Transcript]
	languages   *tier[speech.LanguageDetection]
	logger      *logrus.Logger
}

// NewEngine builds the cache engine. The logger may be nil in tests.
func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	return &Engine{
		responses:   newTier[conversation.CachedReply](cfg.ResponseCapacity, cfg.ResponseTTL),
		transcripts: newTier[speech.Transcript](cfg.TranscriptCapacity, cfg.TranscriptTTL),
		languages:   newTier[speech.LanguageDetection](cfg.LanguageCapacity, cfg.LanguageTTL),
		logger:      logger,
	}
}

func (e *Engine) GetResponse(message, sessionID string) (conversation.CachedReply, bool) {
	v, ok := e.responses.get(ResponseKey(message, sessionID))
	observeLookup(tierResponses, ok)
	return v, ok
}

func (e *Engine) SetResponse(message, sessionID string, reply conversation.CachedReply) {
	e.responses.set(ResponseKey(message, sessionID), reply)
	tierSizes.WithLabelValues(tierResponses).Set(float64(e.responses.len()))
}

func (e *Engine) GetTranscript(audio []byte) (speech.Transcript, bool) {
	v, ok := e.transcripts.get(Fingerprint(audio))
	observeLookup(tierTranscripts, ok)
	return v, ok
}

func (e *Engine) SetTranscript(audio []byte, t speech.Transcript) {
	e.transcripts.set(Fingerprint(audio), t)
	tierSizes.WithLabelValues(tierTranscripts).Set(float64(e.transcripts.len()))
}

func (e *Engine) GetLanguage(audio []byte) (speech.LanguageDetection, bool) {
	v, ok := e.languages.get(Fingerprint(audio))
	observeLookup(tierLanguages, ok)
	return v, ok
}

func (e *Engine) SetLanguage(audio []byte, d speech.LanguageDetection) {
	e.languages.set(Fingerprint(audio), d)
	tierSizes.WithLabelValues(tierLanguages).Set(float64(e.languages.len()))
}

// ClearAll empties every tier. Safe to call concurrently with any other
// operation; used by the admin cache-clear endpoint.
func (e *Engine) ClearAll() {
	e.responses.clear()
	e.transcripts.clear()
	e.languages.clear()
	resetSizeGauges()
	if e.logger != nil {
		e.logger.Info("cache: all tiers cleared")
	}
}

// Prune applies the memory-pressure valve to each tier.
func (e *Engine) Prune() int {
	removed := e.responses.prune() + e.transcripts.prune() + e.languages.prune()
	if removed > 0 && e.logger != nil {
		e.logger.WithField("removed", removed).Info("cache: pruned oldest entries under memory pressure")
	}
	e.updateSizeGauges()
	return removed
}

// Sweep removes expired entries from every tier.
func (e *Engine) Sweep() int {
	removed := e.responses.sweep() + e.transcripts.sweep() + e.languages.sweep()
	if removed > 0 && e.logger != nil {
		e.logger.WithField("removed", removed).Debug("cache: swept expired entries")
	}
	e.updateSizeGauges()
	return removed
}

func (e *Engine) Stats() ports.CacheStats {
	return ports.CacheStats{
		Responses:   e.responses.stats(),
		Transcripts: e.transcripts.stats(),
		Languages:   e.languages.stats(),
	}
}

func (e *Engine) updateSizeGauges() {
	tierSizes.WithLabelValues(tierResponses).Set(float64(e.responses.len()))
	tierSizes.WithLabelValues(tierTranscripts).Set(float64(e.transcripts.len()))
	tierSizes.WithLabelValues(tierLanguages).Set(float64(e.languages.len()))
}

var _ ports.AssistantCache = (*Engine)(nil)
