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

// Package tlsconfig loads mutual-TLS certificates for the Mcc reference
// point: oneM2M CSE-to-CSE registration and notification delivery are
// conventionally secured with mutual TLS, so both the metrics/debug
// listener (server side) and internal/transport.HTTPPoster (client side,
// when dialing a peer CSE) can be handed the same *tls.Config shape.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
)

const (
	caCertFileName  = "ca.crt"
	tlsCertFileName = "tls.crt"
	tlsKeyFileName  = "tls.key"
)

// Load reads a certificate, private key, and CA bundle out of dir using
// the well-known filenames ca.crt/tls.crt/tls.key, and builds a
// *tls.Config suitable for either side of an mTLS connection. isServer
// requests and verifies a client certificate on every incoming
// connection; the client side trusts the CA for verifying the peer
// instead.
func Load(dir string, isServer bool) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(
		filepath.Clean(filepath.Join(dir, tlsCertFileName)),
		filepath.Clean(filepath.Join(dir, tlsKeyFileName)),
	)
	if err != nil {
		return nil, oerrors.Wrap(err, "cannot load certificate")
	}

	caPEM, err := os.ReadFile(filepath.Clean(filepath.Join(dir, caCertFileName)))
	if err != nil {
		return nil, oerrors.Wrap(err, "cannot load CA certificate")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, oerrors.Status(onem2m.InternalServerError, "invalid CA certificate")
	}

	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	if isServer {
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	} else {
		cfg.RootCAs = pool
	}
	return cfg, nil
}
