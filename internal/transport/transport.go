/*
Copyright 2026 The CSE-Core Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package transport names the out-of-scope transport collaborators
// (spec.md §6): the HTTP/MQTT servers fronting client requests, and the
// outbound Poster the notification and announcement managers use to
// deliver verification, notification, and announcement payloads. Only the
// outbound side and the request-header validation helpers are
// implemented here; inbound HTTP/MQTT serving is a stub left to a real
// deployment.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
)

// SupportedSchemes are the URI schemes a nu/su/poa entry may use, per
// spec.md §6, plus the internal "acme" pseudo-scheme reserved for test
// reflection.
var SupportedSchemes = []string{"http", "https", "mqtt", "mqtts", "acme"}

// SupportedReleaseVersions is the range of oneM2M release versions
// (X-M2M-RVI) this CSE accepts.
var SupportedReleaseVersions = mustConstraint(">= 2.0, < 6.0")

func mustConstraint(c string) *semver.Constraints {
	con, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return con
}

// ValidateReleaseVersion checks the X-M2M-RVI value of an incoming
// request against SupportedReleaseVersions, returning a badRequest
// StatusError if it is malformed or out of range.
func ValidateReleaseVersion(rvi string) error {
	v, err := semver.NewVersion(rvi)
	if err != nil {
		return oerrors.Statusf(onem2m.BadRequest, "malformed release version %q", rvi)
	}
	if !SupportedReleaseVersions.Check(v) {
		return oerrors.Statusf(onem2m.BadRequest, "unsupported release version %q", rvi)
	}
	return nil
}

// A Poster delivers a JSON body to a URI — the shared shape of
// subscription verification requests, notifications, deregistration
// notices, and announcement POSTs.
type Poster interface {
	Post(ctx context.Context, uri string, body interface{}) error
}

// HTTPPoster posts over plain net/http. It is the Poster used for the
// "http"/"https" schemes; "mqtt"/"mqtts" delivery and the "acme" test
// reflection scheme are named in spec.md §6 but not implemented — the
// transport layer itself is an out-of-scope collaborator.
type HTTPPoster struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPPoster returns an HTTPPoster with the given per-request timeout.
func NewHTTPPoster(timeout time.Duration) *HTTPPoster {
	return &HTTPPoster{Client: &http.Client{Timeout: timeout}, Timeout: timeout}
}

// NewHTTPPosterWithTLS is NewHTTPPoster for an Mcc reference point secured
// with mutual TLS: tlsCfg is dialed for every "https" target, letting a
// peer CSE's registration and notification/announcement deliveries
// present and verify client certificates.
func NewHTTPPosterWithTLS(timeout time.Duration, tlsCfg *tls.Config) *HTTPPoster {
	transport := &http.Transport{TLSClientConfig: tlsCfg}
	return &HTTPPoster{Client: &http.Client{Timeout: timeout, Transport: transport}, Timeout: timeout}
}

// Post implements Poster. A request that errors or returns a non-2xx
// status is reported as onem2m.TargetNotReachable, per spec.md §5's
// "Cancellation & timeouts" and §7's transient-remote-failure taxonomy.
func (p *HTTPPoster) Post(ctx context.Context, uri string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return oerrors.Wrap(err, "cannot marshal request body")
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(data))
	if err != nil {
		return oerrors.Statusf(onem2m.TargetNotReachable, "cannot build request to %q: %v", uri, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return oerrors.Statusf(onem2m.TargetNotReachable, "request to %q failed: %v", uri, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best effort.

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oerrors.Statusf(onem2m.TargetNotReachable, "request to %q returned status %d", uri, resp.StatusCode)
	}
	return nil
}
