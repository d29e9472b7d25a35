// Package txerr defines the structured error type shared by the signing pipeline.
//
// Callers should branch on Kind or RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
package txerr

import "errors"

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindEncoding covers malformed Base58/Base64 input and fixed-length fields
	// of the wrong length.
	KindEncoding Kind = "Encoding"
	// KindSignatureVerification is raised when a produced or presented
	// fulfillment does not verify.
	KindSignatureVerification Kind = "SignatureVerification"
	// KindInputKeyMismatch is raised when private keys do not line up with the
	// inputs they are meant to sign.
	KindInputKeyMismatch Kind = "InputKeyMismatch"
	KindCanonical        Kind = "Canonical"
	KindInvalidTx        Kind = "InvalidTransaction"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier (e.g., TX-ENC-001, TX-SIG-401) naming the
// violated rule. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Wrap returns a structured error carrying cause. A nil cause yields New.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

func IsEncoding(err error) bool              { return IsKind(err, KindEncoding) }
func IsSignatureVerification(err error) bool { return IsKind(err, KindSignatureVerification) }
func IsInputKeyMismatch(err error) bool      { return IsKind(err, KindInputKeyMismatch) }
