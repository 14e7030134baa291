// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package mintnet has JSON-over-HTTP helpers for talking to mint REST APIs.
package mintnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultResponseSizeLimit = 1 << 20 // 1 MiB

// MintError is the error body a mint returns with a non-200 status.
type MintError struct {
	Status int    `json:"-"`
	Detail string `json:"detail"`
	Code   int    `json:"code"`
}

// Error satisfies the error interface.
func (e *MintError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mint error %d (HTTP %d): %s", e.Code, e.Status, e.Detail)
	}
	return fmt.Sprintf("mint error (HTTP %d): %s", e.Status, e.Detail)
}

// RequestOption are optional arguments to Get, Post, or Do.
type RequestOption struct {
	responseSizeLimit int64
	statusFunc        func(int)
	header            *[2]string
	client            *http.Client
}

// WithSizeLimit sets a size limit for a response. See defaultResponseSizeLimit
// for the default.
func WithSizeLimit(limit int64) *RequestOption {
	return &RequestOption{responseSizeLimit: limit}
}

// WithStatusFunc calls a function with the status code after the request is
// performed.
func WithStatusFunc(f func(int)) *RequestOption {
	return &RequestOption{statusFunc: f}
}

// WithRequestHeader adds a header entry to the request.
func WithRequestHeader(k, v string) *RequestOption {
	h := [2]string{k, v}
	return &RequestOption{header: &h}
}

// WithClient performs the request with the client instead of
// http.DefaultClient.
func WithClient(c *http.Client) *RequestOption {
	return &RequestOption{client: c}
}

// Post performs an HTTP POST request with the JSON encoding of body. If thing
// is non-nil, the response will be JSON-unmarshaled into thing.
func Post(ctx context.Context, uri string, thing, body any, opts ...*RequestOption) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, r)
	if err != nil {
		return fmt.Errorf("error constructing request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return Do(req, thing, opts...)
}

// Get performs an HTTP GET request. If thing is non-nil, the response will be
// JSON-unmarshaled into thing.
func Get(ctx context.Context, uri string, thing any, opts ...*RequestOption) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("error constructing request: %w", err)
	}
	return Do(req, thing, opts...)
}

// Do does the request and JSON-unmarshals the result into thing, if non-nil.
// A non-200 response is an error. If the body is a mint error, the returned
// error wraps a *MintError.
func Do(req *http.Request, thing any, opts ...*RequestOption) error {
	var sizeLimit int64 = defaultResponseSizeLimit
	var statusFunc func(int)
	client := http.DefaultClient
	for _, opt := range opts {
		switch {
		case opt.responseSizeLimit > 0:
			sizeLimit = opt.responseSizeLimit
		case opt.statusFunc != nil:
			statusFunc = opt.statusFunc
		case opt.header != nil:
			h := *opt.header
			req.Header.Add(h[0], h[1])
		case opt.client != nil:
			client = opt.client
		}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close()
	if statusFunc != nil {
		statusFunc(resp.StatusCode)
	}
	reader := io.LimitReader(resp.Body, sizeLimit)
	if resp.StatusCode != http.StatusOK {
		mintErr := &MintError{Status: resp.StatusCode}
		if err = json.NewDecoder(reader).Decode(mintErr); err == nil && mintErr.Detail != "" {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, mintErr)
		}
		return fmt.Errorf("HTTP error: %q (code %d)", resp.Status, resp.StatusCode)
	}
	if thing == nil {
		return nil
	}
	if err = json.NewDecoder(reader).Decode(thing); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
