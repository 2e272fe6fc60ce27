// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload sends candidate documents to the parse API, one request per
// file, and returns an explicit Result instead of an error so the caller can
// move on to the next file.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/parse-files/internal/httputil"
	"github.com/pdiddy/parse-files/pkg/types"
)

const (
	// EndpointPath is appended to the API base URL.
	EndpointPath = "/parse_document/ppt"
	// FormField is the multipart field carrying the document.
	FormField = "file"
)

// errEmptyResponse marks a 200 response whose object has no fields.
var errEmptyResponse = errors.New("empty response object")

// Result is the outcome of uploading one file. Exactly one of Data and Err
// is set.
type Result struct {
	Path string

	// Data is the decoded JSON object returned by the API.
	Data map[string]any

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	Err      error
	Duration time.Duration
}

// OK reports whether the upload produced a result.
func (r Result) OK() bool {
	return r.Err == nil
}

// Uploader sends one document and reports the outcome.
type Uploader interface {
	Upload(ctx context.Context, path string) Result
}

// Client uploads documents to a single parse endpoint using one shared
// *http.Client, so connections are reused across files.
type Client struct {
	http     *http.Client
	endpoint string
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewClient builds a Client for cfg.APIURL. When cfg.Delay is positive,
// consecutive uploads are spaced at least that far apart.
func NewClient(httpClient *http.Client, cfg types.Config, logger zerolog.Logger) *Client {
	c := &Client{
		http:     httpClient,
		endpoint: Endpoint(cfg.APIURL),
		logger:   logger,
	}
	if cfg.Delay > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}
	return c
}

// Endpoint returns the parse URL for an API base URL.
func Endpoint(apiURL string) string {
	return apiURL + EndpointPath
}

// Upload posts the file at path as a multipart form and decodes the JSON
// object in a 200 response. Every failure, including an unreadable file, is
// reported in the returned Result.
func (c *Client) Upload(ctx context.Context, path string) Result {
	start := time.Now()
	res := Result{Path: path}
	fail := func(err error) Result {
		res.Err = err
		res.Duration = time.Since(start)
		c.logger.Debug().Err(err).Str("path", path).Int("status", res.StatusCode).
			Dur("elapsed", res.Duration).Msg("upload failed")
		return res
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(fmt.Errorf("waiting for upload slot: %w", err))
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(fmt.Errorf("opening file: %w", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fail(fmt.Errorf("reading file info: %w", err))
	}

	body, contentType, length, err := multipartBody(f, filepath.Base(path), info.Size())
	if err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return fail(fmt.Errorf("creating request: %w", err))
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("path", path).Int64("bytes", info.Size()).Str("endpoint", c.endpoint).Msg("uploading")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(fmt.Errorf("sending request: %w", err))
	}
	defer httputil.Drain(resp)
	res.StatusCode = resp.StatusCode

	if err := httputil.ExpectStatus(resp, http.StatusOK); err != nil {
		return fail(err)
	}

	data, err := decodeObject(resp.Body)
	if err != nil {
		return fail(err)
	}

	res.Data = data
	res.Duration = time.Since(start)
	c.logger.Debug().Str("path", path).Int("status", res.StatusCode).
		Int("keys", len(data)).Dur("elapsed", res.Duration).Msg("upload complete")
	return res
}

// multipartBody frames r as the single form field FormField. The framing is
// rendered up front so the request carries an exact Content-Length while the
// file itself is streamed.
func multipartBody(r io.Reader, filename string, size int64) (io.Reader, string, int64, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if _, err := mw.CreateFormFile(FormField, filename); err != nil {
		return nil, "", 0, fmt.Errorf("building multipart header: %w", err)
	}
	head := append([]byte(nil), buf.Bytes()...)

	buf.Reset()
	if err := mw.Close(); err != nil {
		return nil, "", 0, fmt.Errorf("building multipart trailer: %w", err)
	}
	tail := append([]byte(nil), buf.Bytes()...)

	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(r, size), bytes.NewReader(tail))
	length := int64(len(head)) + size + int64(len(tail))
	return body, mw.FormDataContentType(), length, nil
}

// decodeObject decodes a single non-empty JSON object, keeping numbers in
// their original textual form. Arrays, scalars, null, {}, and anything after
// the object other than whitespace are rejected.
func decodeObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("decoding response: not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decoding response: trailing data after JSON object")
	}
	if len(data) == 0 {
		return nil, errEmptyResponse
	}
	return data, nil
}
