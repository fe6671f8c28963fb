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

// Package config loads the CSE's configuration surface from a YAML file,
// per spec.md §6.
package config

import (
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/pkg/feature"
)

// Registration carries the Registration Manager's configuration surface.
type Registration struct {
	AllowedAEOriginators  []string `json:"allowedAEOriginators"`
	AllowedCSROriginators []string `json:"allowedCSROriginators"`
}

// ACP carries the default self-permission mask for internally created
// access-control policies.
type ACP struct {
	PVSACOP onem2m.Permission `json:"pvsAcop"`
}

// Transport carries the out-of-scope HTTP/MQTT collaborators' listen
// addresses; the core never dials these itself.
type Transport struct {
	HTTPAddr string `json:"httpAddr"`
	MQTTAddr string `json:"mqttAddr"`
}

// Storage carries the out-of-scope storage collaborator's connection
// string. The in-memory store ignores it.
type Storage struct {
	DSN string `json:"dsn"`
}

// Config is the CSE's full configuration surface, per spec.md §6.
type Config struct {
	CSEOriginator string `json:"cseOriginator"`
	CSERn         string `json:"cseRn"`
	CSEType       string `json:"cseType"`

	CheckExpirationsInterval int `json:"checkExpirationsInterval"`
	MaxIDLength              int `json:"maxIdLength"`

	Registration Registration `json:"registration"`
	ACP          ACP          `json:"acp"`
	Transport    Transport    `json:"transport"`
	Storage      Storage      `json:"storage"`

	// DisabledFeatures lists feature.Flag names to turn off; every other
	// flag defaults to enabled (feature.Defaults()).
	DisabledFeatures []string `json:"disabledFeatures"`
}

// ParsedFlags returns feature.Defaults() with every name in
// c.DisabledFeatures disabled.
func (c *Config) ParsedFlags() *feature.Flags {
	flags := feature.Defaults()
	for _, name := range c.DisabledFeatures {
		flags.Disable(feature.Flag(name))
	}
	return flags
}

// Default returns the configuration applied before any file overlay.
func Default() *Config {
	return &Config{
		CSEOriginator: "CAdmin",
		CSERn:         "cse-in",
		CSEType:       "IN",

		CheckExpirationsInterval: 60,
		MaxIDLength:              10,

		ACP: ACP{PVSACOP: onem2m.PermissionCreate | onem2m.PermissionRetrieve | onem2m.PermissionUpdate | onem2m.PermissionDelete | onem2m.PermissionNotify | onem2m.PermissionDiscovery},

		Transport: Transport{HTTPAddr: ":8080"},
	}
}

// Load reads path from fs, overlaying it onto Default().
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, oerrors.Wrapf(err, "cannot read config file %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, oerrors.Wrapf(err, "cannot parse config file %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParsedCSEType returns c.CSEType parsed into onem2m.CSEType.
func (c *Config) ParsedCSEType() (onem2m.CSEType, error) {
	switch c.CSEType {
	case "IN":
		return onem2m.CSETypeIN, nil
	case "MN":
		return onem2m.CSETypeMN, nil
	case "ASN":
		return onem2m.CSETypeASN, nil
	default:
		return "", oerrors.Statusf(onem2m.BadRequest, "unknown cseType %q", c.CSEType)
	}
}

// Validate rejects a Config with an unrecognized cseType or an empty CSE
// identity.
func (c *Config) Validate() error {
	if c.CSEOriginator == "" {
		return oerrors.Status(onem2m.BadRequest, "cseOriginator must not be empty")
	}
	if c.CSERn == "" {
		return oerrors.Status(onem2m.BadRequest, "cseRn must not be empty")
	}
	if _, err := c.ParsedCSEType(); err != nil {
		return err
	}
	if c.MaxIDLength <= 0 {
		return oerrors.Status(onem2m.BadRequest, "maxIdLength must be positive")
	}
	return nil
}
