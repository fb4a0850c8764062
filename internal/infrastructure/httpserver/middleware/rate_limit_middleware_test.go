package middleware

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type rateLimiterMock struct {
	allowed bool
	err     error
	keys    []string
}

func (m *rateLimiterMock) Allow(_ context.Context, key string) (bool, int, int, time.Time, error) {
	m.keys = append(m.keys, key)
	return m.allowed, 4, 5, time.Unix(1700000000, 0), m.err
}

func invoke(t *testing.T, mw echo.MiddlewareFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	return invokeRequest(t, mw, httptest.NewRequest(http.MethodGet, target, nil))
}

func invokeRequest(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestRateLimitAllowsAndSetsHeaders(t *testing.T) {
	limiter := &rateLimiterMock{allowed: true}
	mw := NewRateLimitMiddleware(limiter, nil).Handler()

	rec := invoke(t, mw, "/api/v1/chat")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, "1700000000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimitRejectsWhenExhausted(t *testing.T) {
	limiter := &rateLimiterMock{allowed: false}
	mw := NewRateLimitMiddleware(limiter, nil).Handler()

	rec := invoke(t, mw, "/api/v1/chat")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &rateLimiterMock{allowed: false, err: errors.New("redis down")}
	mw := NewRateLimitMiddleware(limiter, nil).Handler()

	rec := invoke(t, mw, "/api/v1/chat")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKeyPrefersSession(t *testing.T) {
	limiter := &rateLimiterMock{allowed: true}
	mw := NewRateLimitMiddleware(limiter, nil).Handler()

	invoke(t, mw, "/api/v1/chat?session_id=sess1")
	invoke(t, mw, "/api/v1/chat")

	require.Len(t, limiter.keys, 2)
	require.Equal(t, "session:sess1", limiter.keys[0])
	require.True(t, len(limiter.keys[1]) > len("ip:"))
	require.Contains(t, limiter.keys[1], "ip:")
}

func TestRateLimitKeyReadsMultipartSessionField(t *testing.T) {
	limiter := &rateLimiterMock{allowed: true}
	mw := NewRateLimitMiddleware(limiter, nil).Handler()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("session_id", "voice-sess"))
	fw, err := w.CreateFormFile("audio", "clip.wav")
	require.NoError(t, err)
	_, err = fw.Write([]byte("pcm audio data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/voice", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	invokeRequest(t, mw, req)

	// JSON bodies are never buffered for a session id; they key by IP.
	jsonReq := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"session_id":"s1","message":"hi"}`))
	jsonReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	invokeRequest(t, mw, jsonReq)

	require.Len(t, limiter.keys, 2)
	require.Equal(t, "session:voice-sess", limiter.keys[0])
	require.Contains(t, limiter.keys[1], "ip:")
}
