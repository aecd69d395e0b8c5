// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package errors attaches machine-readable codes and structured context to
// errors. A code is a dotted path whose last segment is the reason, and the
// reason decides which HTTP status the error maps to.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreNodeNotFound       Code = "store.node.get.not_found"
	CodeStoreEdgeQueryInvalid   Code = "store.edges.query.invalid_input"
	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreInvalidInput       Code = "store.invalid_input"
	CodeStoreConflict           Code = "store.conflict"
	CodeStoreCodecInvalid       Code = "store.codec.invalid_format"

	CodeQueryGraphInvalid       Code = "qgraph.validate.invalid"
	CodeQueryGraphCycleInvalid  Code = "qgraph.cycle.invalid"
	CodeQueryGraphAnchorInvalid Code = "qgraph.anchor.invalid"

	CodeEngineMatchFailure Code = "engine.match.failure"

	CodeLoaderReadFailure  Code = "loader.read.failure"
	CodeLoaderParseInvalid Code = "loader.parse.invalid_format"
	CodeLoaderWriteFailure Code = "loader.write.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLIServerNotRunning Code = "cli.server.not_running"
	CodeCLIRequestFailure   Code = "cli.request.failure"
	CodeCLISetupFailure     Code = "cli.setup.failure"
	CodeCLIInputInvalid     Code = "cli.input.invalid"
)

// reasonStatus maps a code's reason to the HTTP status a handler answers
// with. Unlisted reasons are server failures.
var reasonStatus = map[string]int{
	"not_found":      http.StatusNotFound,
	"conflict":       http.StatusConflict,
	"invalid":        http.StatusBadRequest,
	"invalid_input":  http.StatusBadRequest,
	"invalid_value":  http.StatusBadRequest,
	"invalid_format": http.StatusBadRequest,
	"unsupported":    http.StatusNotImplemented,
}

// Reason is the last dotted segment of c.
func (c Code) Reason() string {
	raw := string(c)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}

// Attr is one key/value pair of error context.
type Attr struct {
	Key   string
	Value any
}

func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldNodeID(value string) Attr { return Field("node_id", value) }
func FieldQNode(value string) Attr  { return Field("qnode", value) }
func FieldQEdge(value string) Attr  { return Field("qedge", value) }
func FieldPath(value string) Attr   { return Field("path", value) }

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(pairs(fields)...).New(msg)
}

// Errorf formats like fmt.Errorf; %w keeps the wrapped error in the chain.
func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

// Wrap returns nil for a nil err.
func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(pairs(fields)...).Wrapf(err, "%s", msg)
}

// With adds context to err and keeps its code. Uncoded errors become
// internal failures.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}
	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}
	return oops.Code(code).With(pairs(fields)...).Wrap(err)
}

// Join combines errs under one code and message. It returns nil when every
// err is nil.
func Join(code Code, msg string, errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(code).Wrapf(joined, "%s", msg)
}

// CodeOf returns the code carried by err's chain, or "" for uncoded errors.
func CodeOf(err error) Code {
	oopsErr, ok := asOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// FieldsOf returns the context attached anywhere in err's chain.
func FieldsOf(err error) map[string]any {
	oopsErr, ok := asOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func IsNotFound(err error) bool {
	return CodeOf(err).Reason() == "not_found"
}

func IsInvalidInput(err error) bool {
	return HTTPStatus(err) == http.StatusBadRequest
}

// HTTPStatus maps err's reason to a status code, defaulting to 500.
func HTTPStatus(err error) int {
	code := CodeOf(err)
	if code == "" {
		return http.StatusInternalServerError
	}
	if status, ok := reasonStatus[code.Reason()]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func asOops(err error) (oops.OopsError, bool) {
	if err == nil {
		return oops.OopsError{}, false
	}
	return oops.AsOops(err)
}

func pairs(fields []Attr) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		out = append(out, f.Key, f.Value)
	}
	return out
}
