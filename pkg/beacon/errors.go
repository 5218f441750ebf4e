/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package beacon

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidQuery
	KindPermissions
	KindNotImplemented
	KindUpstream
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidQuery:
		return "invalid query"
	case KindPermissions:
		return "insufficient permissions"
	case KindNotImplemented:
		return "not implemented"
	case KindUpstream:
		return "upstream service error"
	case KindNotFound:
		return "not found"
	}
	return "internal error"
}

// Error is the error type surfaced to Beacon callers. Message is safe to show
// to the caller; Err holds the underlying cause and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidQuery(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidQuery, Message: fmt.Sprintf(format, args...)}
}

// PermissionsDenied never carries detail about why the check failed.
func PermissionsDenied() error {
	return &Error{Kind: KindPermissions, Message: "insufficient permissions"}
}

func NotImplemented(format string, args ...interface{}) error {
	return &Error{Kind: KindNotImplemented, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a failed backend or peer call. The caller only ever sees a
// generic message.
func Upstream(err error, service string) error {
	return &Error{
		Kind:    KindUpstream,
		Message: "error contacting " + service,
		Err:     err,
	}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the text that may be shown to a caller for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

func StatusCode(err error) int {
	switch KindOf(err) {
	case KindInvalidQuery:
		return http.StatusBadRequest
	case KindPermissions:
		return http.StatusForbidden
	case KindNotImplemented:
		return http.StatusNotImplemented
	case KindUpstream:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
