package clientsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tahcohcat/gamify-web/internal/models"
	"github.com/tahcohcat/gamify-web/internal/progression"
	push "github.com/tahcohcat/gamify-web/internal/websocket"
)

// QuestAvailability mirrors one entry of the dashboard quest status.
type QuestAvailability struct {
	PeriodKey string             `json:"period_key"`
	Available bool               `json:"available"`
	Reward    progression.Reward `json:"reward"`
}

type QuestStatus struct {
	Daily  QuestAvailability `json:"daily"`
	Weekly QuestAvailability `json:"weekly"`
}

// Dashboard is the subset of GET /api/v1/progress the client reads.
type Dashboard struct {
	Progress           models.UserProgress          `json:"progress"`
	Level              progression.Progress         `json:"level_progress"`
	ProgressPercent    int                          `json:"progress_percent"`
	Today              models.DailyActivity         `json:"today"`
	Quests             QuestStatus                  `json:"quests"`
	RecentAchievements []models.UserAchievementView `json:"recent_achievements"`
}

type authResponse struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to the progression API. Every failure comes back as a
// *progression.Error; anything that never produced a server answer is a
// transient failure.
type Client struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	token string
	user  models.User
}

// NewClient creates a client targeting baseURL (e.g. "http://127.0.0.1:8080").
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// User is the account from the last login, if any.
func (c *Client) User() models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Login signs in with a password and keeps the returned bearer token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.signIn(ctx, "/api/v1/auth/login", map[string]string{"username": username, "password": password})
}

// Demo signs in to the shared demo account.
func (c *Client) Demo(ctx context.Context) error {
	return c.signIn(ctx, "/api/v1/auth/demo", nil)
}

func (c *Client) signIn(ctx context.Context, path string, body interface{}) error {
	var out authResponse
	if err := c.post(ctx, path, body, &out); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = out.Token
	c.user = out.User
	c.mu.Unlock()
	return nil
}

// EarnXP sends POST /api/v1/earn_xp. A zero amount lets the server pick its default.
func (c *Client) EarnXP(ctx context.Context, actionType string, amount int) (*progression.Result, error) {
	body := map[string]interface{}{"action_type": actionType}
	if amount != 0 {
		body["amount"] = amount
	}
	var out progression.Result
	if err := c.post(ctx, "/api/v1/earn_xp", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteQuest sends POST /api/v1/complete_quest.
func (c *Client) CompleteQuest(ctx context.Context, questType string) (*progression.Result, error) {
	var out progression.Result
	if err := c.post(ctx, "/api/v1/complete_quest", map[string]string{"quest_type": questType}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard fetches GET /api/v1/progress.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var out Dashboard
	if err := c.get(ctx, "/api/v1/progress", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return progression.Wrap(progression.KindTransientFailure, "failed to build request", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return progression.Wrap(progression.KindTransientFailure, "failed to encode request", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return progression.Wrap(progression.KindTransientFailure, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	c.setAuth(req.Header)
	resp, err := c.client.Do(req)
	if err != nil {
		return progression.Wrap(progression.KindTransientFailure, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return progression.Wrap(progression.KindTransientFailure, "failed to decode response", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		kind := progression.KindTransientFailure
		if resp.StatusCode == http.StatusUnauthorized {
			kind = progression.KindUnauthenticated
		}
		return progression.NewError(kind, fmt.Sprintf("%s %s: %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode))
	}
	return progression.NewError(progression.Kind(body.Error), body.Message)
}

func (c *Client) setAuth(h http.Header) {
	if token := c.Token(); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}

// Stream is an open push connection.
type Stream struct {
	conn *websocket.Conn
}

// WebSocketURL derives the push endpoint from the API base URL.
func (c *Client) WebSocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Subscribe opens the push channel for the signed-in user.
func (c *Client) Subscribe(ctx context.Context) (*Stream, error) {
	wsURL, err := c.WebSocketURL()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	c.setAuth(header)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, progression.Wrap(progression.KindTransientFailure, "failed to connect", err)
	}
	return &Stream{conn: conn}, nil
}

// Next blocks until the next progression result arrives. Other message
// types are skipped.
func (s *Stream) Next() (progression.Result, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return progression.Result{}, progression.Wrap(progression.KindTransientFailure, "push connection closed", err)
		}

		var msg push.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != push.TypeProgression {
			continue
		}
		var result progression.Result
		if err := json.Unmarshal(msg.Payload, &result); err != nil {
			continue
		}
		return result, nil
	}
}

func (s *Stream) Close() error {
	return s.conn.Close()
}
