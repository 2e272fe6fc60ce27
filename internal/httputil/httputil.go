// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP client shared by every upload in a run.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/parse-files/pkg/types"
)

// maxErrorBody bounds how much of a failed response body is kept for
// error messages.
const maxErrorBody = 512

// Transport stamps a User-Agent and an optional bearer token on every
// request before delegating to Base.
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
	Token     string
}

// RoundTrip implements http.RoundTripper. The caller's request is cloned
// before headers are set.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.UserAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.UserAgent)
	}
	if t.Token != "" && r.Header.Get("Authorization") == "" {
		r.Header.Set("Authorization", "Bearer "+t.Token)
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

// NewClient returns a client for one run. A zero Timeout leaves the
// transport default in place; connections are reused across requests.
func NewClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &Transport{
			UserAgent: cfg.UserAgent,
			Token:     cfg.APIToken,
		},
	}
}

// StatusError reports a response whose status is not the one expected.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d", e.StatusCode)
	if text := http.StatusText(e.StatusCode); text != "" {
		msg += " " + text
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// ExpectStatus returns nil when resp has the wanted status. Otherwise it
// reads a bounded prefix of the body into a *StatusError. The body is not
// closed.
func ExpectStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(snippet)),
	}
}

// Drain discards the rest of the body and closes it so the connection can
// be reused.
func Drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
