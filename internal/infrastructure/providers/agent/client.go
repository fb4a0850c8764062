package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// Config points at the hosted conversation agent.
type Config struct {
	Endpoint       string
	APIKey         string
	AgentID        string
	RequestTimeout time.Duration
}

// Client talks to the hosted agent. The agent keeps conversation history per
// thread; the backend only stores thread ids.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}, logger: logger}
}

// CreateThread opens a new conversation thread and returns its id.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{"agent_id": c.cfg.AgentID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/threads", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("agent: build create-thread request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: create thread: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("agent: create thread returned %d", resp.StatusCode)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("agent: decode thread response: %w", err)
	}
	if c.logger != nil {
		c.logger.WithField("thread_id", out.ID).Debug("agent: thread created")
	}
	return out.ID, nil
}

// Converse appends a user message to the thread and returns the agent reply.
func (c *Client) Converse(ctx context.Context, threadID, message string) (string, error) {
	body, err := json.Marshal(map[string]string{"role": "user", "content": message})
	if err != nil {
		return "", fmt.Errorf("agent: encode message: %w", err)
	}
	url := fmt.Sprintf("%s/threads/%s/messages", c.cfg.Endpoint, threadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("agent: build converse request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: converse: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent: converse returned %d", resp.StatusCode)
	}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("agent: decode reply: %w", err)
	}
	return out.Reply, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

var _ ports.ConversationAgent = (*Client)(nil)
