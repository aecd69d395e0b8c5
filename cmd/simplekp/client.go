// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by commands that
// talk to a running server. Overridden in tests.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// kpClient provides HTTP access to a running knowledge provider.
type kpClient struct {
	baseURL string
	http    *http.Client
}

// newKPClient creates a client targeting the given host:port address.
func newKPClient(addr string) *kpClient {
	return &kpClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
// A refused connection yields CodeCLIServerNotRunning.
func (c *kpClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return sigilerr.Wrap(err, sigilerr.CodeCLIServerNotRunning, "server is not running (connection refused)")
		}
		return sigilerr.Errorf(sigilerr.CodeCLIRequestFailure, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return sigilerr.Errorf(sigilerr.CodeCLIRequestFailure, "server returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return sigilerr.Errorf(sigilerr.CodeCLIRequestFailure, "invalid response: %w", err)
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
