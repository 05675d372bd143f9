// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// booking engine and handlers to distinguish between failure scenarios
// with errors.Is instead of string matching.
package repository

import "errors"

// ErrSessionNotFound is returned when a play session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrRegistrationNotFound is returned when a registration does not exist.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrWaitlistEntryNotFound is returned when a waitlist entry does not exist.
var ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")

// ErrHoldNotFound is returned when no hold matches the given id or
// payment reference.
var ErrHoldNotFound = errors.New("hold not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrInsufficientPoints is returned by the point account debit when the
// balance does not cover the requested amount.
var ErrInsufficientPoints = errors.New("insufficient points balance")

// ErrLedgerUnderflow is returned when a release would drive a session's
// occupied counter below zero.  It indicates a caller bug: releases must
// never exceed the seats actually held.
var ErrLedgerUnderflow = errors.New("seat release exceeds occupied count")
