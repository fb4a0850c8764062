package httpserver

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/speech"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// maxAudioBytes caps voice uploads (about 1 minute of 16kHz 16-bit mono).
const maxAudioBytes = 4 << 20

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
	Cached    bool   `json:"cached"`
}

type voiceResponse struct {
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	SessionID  string `json:"session_id"`
	Language   string `json:"language"`
	Cached     bool   `json:"cached"`
	Audio      string `json:"audio,omitempty"`
}

// chat handles one text turn.
func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := s.assistant.HandleText(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"session_id": sessionID}).WithError(err).Error("chat turn failed")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "assistant is unavailable")
	}

	return c.JSON(http.StatusOK, chatResponse{
		Reply:     reply.Text,
		SessionID: reply.SessionID,
		Language:  reply.Language,
		Cached:    reply.Cached,
	})
}

// voice handles one audio turn: multipart upload with an "audio" part and
// optional "session_id" and "voice" fields.
func (s *Server) voice(c echo.Context) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is required")
	}
	if file.Size > maxAudioBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "audio upload too large")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read audio upload")
	}
	defer src.Close()
	audio, err := io.ReadAll(io.LimitReader(src, maxAudioBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read audio upload")
	}
	if len(audio) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "audio upload is empty")
	}

	sessionID := c.FormValue("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	gender := speech.VoiceFemale
	if c.FormValue("voice") == string(speech.VoiceMale) {
		gender = speech.VoiceMale
	}

	reply, err := s.assistant.HandleVoice(c.Request().Context(), sessionID, audio, gender)
	if err != nil {
		if err == ports.ErrNoSpeech {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "no speech detected in audio")
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"session_id": sessionID}).WithError(err).Error("voice turn failed")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "assistant is unavailable")
	}

	return c.JSON(http.StatusOK, voiceResponse{
		Transcript: reply.Transcript,
		Reply:      reply.Text,
		SessionID:  reply.SessionID,
		Language:   reply.Language,
		Cached:     reply.Cached,
		Audio:      base64.StdEncoding.EncodeToString(reply.Audio),
	})
}

// endSession drops the session→thread mapping.
func (s *Server) endSession(c echo.Context) error {
	sessionID := c.Param("id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}
	if err := s.sessions.EndSession(c.Request().Context(), sessionID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to end session")
	}
	return c.NoContent(http.StatusNoContent)
}
