package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/config"
)

// client talks to the waypoint daemon on behalf of one learner
type client struct {
	baseURL string
	userID  string
	http    *http.Client
}

// apiError is the daemon's JSON error body
type apiError struct {
	Message string `json:"error"`
	Status  int    `json:"status"`
	Details string `json:"details"`
}

func (e *apiError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func newClient(cfg *config.LocalConfig) *client {
	userID := os.Getenv("WAYPOINT_USER")
	if userID == "" {
		userID = cfg.Daemon.UserID
	}
	return &client{
		baseURL: daemonURL(cfg),
		userID:  userID,
		http:    &http.Client{Timeout: 2*cfg.EvaluationTimeout() + 10*time.Second},
	}
}

// daemonURL returns the base URL of the configured daemon. A wildcard bind
// address is reached over loopback.
func daemonURL(cfg *config.LocalConfig) string {
	host := cfg.Daemon.Bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Daemon.Port))
}

// withClient loads the config and runs fn against a running daemon
func withClient(fn func(c *client) error) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c := newClient(cfg)
	if !c.healthy() {
		return fmt.Errorf("daemon not running (run 'waypoint start' first)")
	}
	return fn(c)
}

func (c *client) learnerPath(suffix string) string {
	return "/v1/learners/" + url.PathEscape(c.userID) + suffix
}

func (c *client) healthy() bool {
	resp, err := c.http.Get(c.baseURL + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// do sends body as JSON (raw when it is []byte) and decodes the response
// into out when out is non-nil.
func (c *client) do(method, path string, body, out any) error {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw, err = io.ReadAll(resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *client) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *client) post(path string, body, out any) error {
	return c.do(http.MethodPost, path, body, out)
}
