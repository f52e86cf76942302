// Package ctlerr provides the service's flat error-kind taxonomy (§7).
// There is no inheritance — a Kind discriminator plus a wrapped cause,
// the Go analogue of the original's snafu-derived Error enum (error.rs).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package ctlerr

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	Config          Kind = "config"
	Store           Kind = "store"
	Bus             Kind = "bus"
	Serialization   Kind = "serialization"
	ExternalProcess Kind = "external_process"
	HTTP            Kind = "http"
	URLParse        Kind = "url_parse"
	IntParse        Kind = "int_parse"
	Misc            Kind = "misc"
)

// Error carries a Kind, a human-readable Details string and, where
// applicable, a wrapped cause — never a stack of custom struct types per
// failure mode.
type Error struct {
	kind    Kind
	details string
	cause   error
}

func New(kind Kind, details string) *Error {
	return &Error{kind: kind, details: details}
}

func Wrap(kind Kind, cause error, details string) *Error {
	return &Error{kind: kind, details: details, cause: errors.WithStack(cause)}
}

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.details, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.details)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether err is a *Error of the given Kind, the idiom used
// across the store/bus/api packages to branch on failure without a type
// switch on concrete causes.
func Is(err error, kind Kind) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.kind == kind
}
