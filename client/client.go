// Package client is a Go client for the onboarding API that mirrors the
// caller's session.
//
// The mirror is a read-through cache of the session token and the signed-in
// user. The server is the only source of truth: any 401 drops the whole local
// session and fires the unauthenticated callback, and a failed write is never
// patched into local state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sarf14/onboarding-tool-sub001/types"
)

const defaultTimeout = 30 * time.Second

// ErrUnauthenticated is returned when there is no session or the server
// rejected it. The local session is gone by the time it is returned.
var ErrUnauthenticated = errors.New("client: unauthenticated")

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Client talks to the onboarding API on behalf of one user.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	onExpired  func()

	mu    sync.Mutex
	token string
	user  *types.User
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// OnUnauthenticated registers fn to run whenever the session is dropped
// because the server answered 401. UIs use it to redirect to login.
func OnUnauthenticated(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Restore resumes a session from a previously stored token. The profile is
// fetched lazily on the next Me call.
func (c *Client) Restore(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
	c.user = nil
}

// Token returns the current session token, or "" when signed out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Authenticated reports whether a session token is held locally. It does not
// contact the server.
func (c *Client) Authenticated() bool {
	return c.Token() != ""
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      types.User `json:"user"`
}

type meResponse struct {
	User types.User `json:"user"`
}

// Login signs in and replaces any existing local session.
func (c *Client) Login(ctx context.Context, email, password string) (types.User, error) {
	var resp authResponse
	err := c.send(ctx, http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return types.User{}, err
	}

	user := resp.User
	c.mu.Lock()
	c.token = resp.Token
	c.user = &user
	c.mu.Unlock()
	return user, nil
}

// Logout revokes the session on the server. Local state is cleared even when
// the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	token := c.Token()
	c.clear(token)
	if token == "" {
		return nil
	}

	err := c.send(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
	if errors.Is(err, ErrUnauthenticated) {
		return nil
	}
	return err
}

// Me returns the signed-in user, from the cache when present.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	c.mu.Lock()
	if c.user != nil {
		user := *c.user
		c.mu.Unlock()
		return user, nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh reloads the signed-in user from the server.
func (c *Client) Refresh(ctx context.Context) (types.User, error) {
	token, err := c.session()
	if err != nil {
		return types.User{}, err
	}

	var resp meResponse
	if err := c.send(ctx, http.MethodGet, "/auth/me", token, nil, &resp); err != nil {
		return types.User{}, err
	}

	c.remember(token, resp.User)
	return resp.User, nil
}

// Progress fetches the caller's progress report. Reports are never cached.
func (c *Client) Progress(ctx context.Context) (types.ProgressReport, error) {
	var report types.ProgressReport
	err := c.authorized(ctx, http.MethodGet, "/progress/me", nil, &report)
	return report, err
}

// RecordTask marks a task of a day as done.
func (c *Client) RecordTask(ctx context.Context, day int, taskID string) (types.DayProgress, error) {
	var p types.DayProgress
	body := map[string]string{"taskId": taskID}
	if err := c.authorized(ctx, http.MethodPost, dayPath(day, "tasks"), body, &p); err != nil {
		return types.DayProgress{}, err
	}
	if p.Status == types.StatusCompleted {
		// The server may have unlocked the next day.
		c.invalidateUser()
	}
	return p, nil
}

// RecordQuiz stores a quiz score for a day.
func (c *Client) RecordQuiz(ctx context.Context, day int, slot types.QuizSlot, score int) (types.DayProgress, error) {
	var p types.DayProgress
	body := map[string]any{"slot": slot, "score": score}
	if err := c.authorized(ctx, http.MethodPost, dayPath(day, "quizzes"), body, &p); err != nil {
		return types.DayProgress{}, err
	}
	if p.Status == types.StatusCompleted {
		c.invalidateUser()
	}
	return p, nil
}

// AdvanceDay asks the server to unlock the next day and returns the updated
// user.
func (c *Client) AdvanceDay(ctx context.Context) (types.User, error) {
	token, err := c.session()
	if err != nil {
		return types.User{}, err
	}

	var user types.User
	if err := c.send(ctx, http.MethodPost, "/progress/me/advance", token, nil, &user); err != nil {
		return types.User{}, err
	}
	c.remember(token, user)
	return user, nil
}

// DayContent fetches the opaque content document of a day.
func (c *Client) DayContent(ctx context.Context, day int) (json.RawMessage, error) {
	var resp struct {
		Content json.RawMessage `json:"content"`
	}
	if err := c.authorized(ctx, http.MethodGet, "/content/day/"+strconv.Itoa(day), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Content, nil
}

func dayPath(day int, kind string) string {
	return "/progress/me/days/" + strconv.Itoa(day) + "/" + kind
}

func (c *Client) session() (string, error) {
	token := c.Token()
	if token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

func (c *Client) authorized(ctx context.Context, method, path string, body, out any) error {
	token, err := c.session()
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, token, body, out)
}

// send performs one request. A 401 on an authenticated request drops the
// session it was made with.
func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if token != "" {
			c.expire(token)
		}
		return fmt.Errorf("%w: %s", ErrUnauthenticated, errorMessage(resp.Body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

// expire drops the session if it is still the one token was issued for, then
// notifies the owner.
func (c *Client) expire(token string) {
	if !c.clear(token) {
		return
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}

// clear drops the local session if it still holds token and reports whether
// it did. A newer login is left alone.
func (c *Client) clear(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != token {
		return false
	}
	c.token = ""
	c.user = nil
	return token != ""
}

// remember caches user if the session is still the one token belongs to.
func (c *Client) remember(token string, user types.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.user = &user
	}
}

func (c *Client) invalidateUser() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
}
