package signup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"campusblog/pkg/common"
	"campusblog/pkg/logger"
)

const (
	SuccessAlert  = "Sign up successful!"
	RedirectPath  = "/"
	RedirectDelay = 1500 * time.Millisecond
)

var ErrUnrecognizedResponse = errors.New("signup: unrecognized response")

type (
	Notifier interface {
		ShowAlert(kind, msg string)
	}

	Navigator interface {
		Assign(path string)
	}
)

const (
	AlertSuccess = "success"
	AlertError   = "error"
)

type Request struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Client submits the signup form and reacts to the outcome the way the
// signup page does: an alert, then on success a delayed redirect.
type Client struct {
	baseURL   string
	http      *http.Client
	notifier  Notifier
	navigator Navigator
	afterFunc func(time.Duration, func())
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithAfterFunc replaces time.AfterFunc for the redirect.
func WithAfterFunc(f func(time.Duration, func())) Option {
	return func(cl *Client) { cl.afterFunc = f }
}

func NewClient(baseURL string, n Notifier, nav Navigator, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		notifier:  n,
		navigator: nav,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Signup sends one request. Every outcome is also reported through the
// Notifier; the returned error is for the caller's logs.
func (c *Client) Signup(ctx context.Context, name, email, password, passwordConfirm string) error {
	body, err := json.Marshal(Request{
		Name:            name,
		Email:           email,
		Password:        password,
		PasswordConfirm: passwordConfirm,
	})
	if err != nil {
		return fmt.Errorf("signup: can't marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/users/signup", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("signup: can't build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.notifier.ShowAlert(AlertError, err.Error())
		return fmt.Errorf("signup: request failed: %w", err)
	}
	defer resp.Body.Close()

	msg := common.Msg{}
	decodeErr := json.NewDecoder(resp.Body).Decode(&msg)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := msg.Message
		if decodeErr != nil || text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		c.notifier.ShowAlert(AlertError, text)
		return fmt.Errorf("signup: rejected with %d: %s", resp.StatusCode, text)
	}

	if decodeErr != nil || msg.Status != common.StatusSuccess {
		logger.Log(ctx).Warnw("signup: 2xx response without success status",
			"code", resp.StatusCode, "status", msg.Status)
		return ErrUnrecognizedResponse
	}

	c.notifier.ShowAlert(AlertSuccess, SuccessAlert)
	c.afterFunc(RedirectDelay, func() {
		c.navigator.Assign(RedirectPath)
	})
	return nil
}
