package speechclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	domain "github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/speechpool"
)

// Config points at the hosted speech service.
type Config struct {
	Endpoint        string
	SubscriptionKey string
	Region          string
	RequestTimeout  time.Duration
}

// Connection is one authenticated handle to the speech service. The token
// exchange at open time is the expensive step; connections are pooled and
// periodically recycled so tokens never go stale mid-request.
type Connection struct {
	cfg    Config
	http   *http.Client
	token  string
	closed bool
}

// Open performs the token exchange and returns a ready connection.
func Open(ctx context.Context, cfg Config) (*Connection, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Connection{cfg: cfg, http: &http.Client{Timeout: timeout}}
	if err := c.refreshToken(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Factory adapts Open for the connection pool.
func Factory(cfg Config, logger *logrus.Logger) speechpool.Factory {
	return func(ctx context.Context) (ports.SpeechConnection, error) {
		conn, err := Open(ctx, cfg)
		if err != nil {
			if logger != nil {
				logger.WithError(err).Warn("speech: connection open failed")
			}
			return nil, err
		}
		return conn, nil
	}
}

func (c *Connection) refreshToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/v1/token", nil)
	if err != nil {
		return fmt.Errorf("speech: build token request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	req.Header.Set("Ocp-Apim-Subscription-Region", c.cfg.Region)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("speech: token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speech: token exchange returned %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("speech: decode token response: %w", err)
	}
	c.token = out.Token
	return nil
}

// Transcribe sends raw audio for recognition. A non-empty languageHint pins
// recognition to that locale instead of auto-detecting. An empty Text with a
// nil error means the service heard no speech.
func (c *Connection) Transcribe(ctx context.Context, audio []byte, languageHint string) (domain.Transcript, error) {
	if c.closed {
		return domain.Transcript{}, fmt.Errorf("speech: connection is closed")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/v1/transcribe", bytes.NewReader(audio))
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("speech: build transcribe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/octet-stream")
	// Without a hint the service auto-detects between the two supported
	// locales; a hint from a prior detection of the same audio skips that.
	candidates := domain.LanguageEnglish + "," + domain.LanguageNepali
	if languageHint != "" {
		candidates = domain.NormalizeLanguage(languageHint)
	}
	req.Header.Set("X-Candidate-Languages", candidates)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("speech: transcribe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Transcript{}, fmt.Errorf("speech: transcribe returned %d", resp.StatusCode)
	}
	var out struct {
		Text       string  `json:"text"`
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Transcript{}, fmt.Errorf("speech: decode transcript: %w", err)
	}
	return domain.Transcript{
		Text:       out.Text,
		Language:   domain.NormalizeLanguage(out.Language),
		Confidence: out.Confidence,
	}, nil
}

// Synthesize renders text as spoken audio.
func (c *Connection) Synthesize(ctx context.Context, text, language string, gender domain.VoiceGender) ([]byte, error) {
	if c.closed {
		return nil, fmt.Errorf("speech: connection is closed")
	}
	body, err := json.Marshal(map[string]string{
		"text":     text,
		"language": domain.NormalizeLanguage(language),
		"voice":    string(gender),
	})
	if err != nil {
		return nil, fmt.Errorf("speech: encode synthesis request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech: build synthesize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: synthesize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech: synthesize returned %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: read synthesized audio: %w", err)
	}
	return audio, nil
}

// Close releases the handle. Closing twice is harmless.
func (c *Connection) Close() error {
	c.closed = true
	c.http.CloseIdleConnections()
	return nil
}

var _ ports.SpeechConnection = (*Connection)(nil)
