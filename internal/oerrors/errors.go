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

// Package oerrors wraps github.com/pkg/errors with a typed StatusError so
// that the dispatcher — the single point spec.md designates for mapping
// errors to oneM2M response status codes — can recover the intended code
// from any wrapped error in the chain.
package oerrors

import (
	"github.com/pkg/errors"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
)

// Re-exported so callers only need to import this package for ordinary
// error construction and wrapping.
var (
	New    = errors.New
	Errorf = errors.Errorf
	Wrap   = errors.Wrap
	Wrapf  = errors.Wrapf
	Cause  = errors.Cause
)

// A StatusError carries the oneM2M response status code that should be
// returned for it, along with the error it wraps.
type StatusError struct {
	code ResponseStatusCode
	err  error
}

// ResponseStatusCode is an alias kept local so this package does not need
// to be read alongside apis/onem2m to make sense of StatusCode's return
// type.
type ResponseStatusCode = onem2m.ResponseStatusCode

func (e *StatusError) Error() string { return e.err.Error() }

// Unwrap supports errors.Is/As and errors.Cause across a *StatusError.
func (e *StatusError) Unwrap() error { return e.err }

// Code returns the status code this error should map to.
func (e *StatusError) Code() ResponseStatusCode { return e.code }

// WithStatus wraps err, tagging it with the oneM2M response status code
// the dispatcher should surface for it. A nil err returns nil.
func WithStatus(code ResponseStatusCode, err error) error {
	if err == nil {
		return nil
	}
	return &StatusError{code: code, err: err}
}

// Status constructs a new error directly tagged with a status code and
// message, equivalent to WithStatus(code, New(msg)).
func Status(code ResponseStatusCode, msg string) error {
	return &StatusError{code: code, err: errors.New(msg)}
}

// Statusf is Status with fmt.Sprintf-style formatting.
func Statusf(code ResponseStatusCode, format string, args ...interface{}) error {
	return &StatusError{code: code, err: errors.Errorf(format, args...)}
}

// StatusCode walks the chain of err looking for a *StatusError, returning
// its code. An err with no tagged status maps to InternalServerError; a
// nil err maps to OK. Components tag an error with Status, Statusf, or
// WithStatus where a check fails; StatusCode recovers that code through
// any wrapping added on the way up.
func StatusCode(err error) ResponseStatusCode {
	if err == nil {
		return onem2m.OK
	}
	for cause := err; cause != nil; cause = errors.Unwrap(cause) {
		if se, ok := cause.(*StatusError); ok {
			return se.Code()
		}
	}
	return onem2m.InternalServerError
}
