package model

import (
	"errors"
	"fmt"

	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/txerr"
	"ledgertx.io/ledgertx/txstore"
)

type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrInvalidCID         ErrorCode = "INVALID_CID"
	ErrMissingCAS         ErrorCode = "MISSING_CAS"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrCIDMismatch        ErrorCode = "CID_MISMATCH"
	ErrEncoding           ErrorCode = "ENCODING"
	ErrSignatureInvalid   ErrorCode = "SIGNATURE_INVALID"
	ErrInputKeyMismatch   ErrorCode = "INPUT_KEY_MISMATCH"
	ErrInvalidTransaction ErrorCode = "INVALID_TRANSACTION"
	ErrInternal           ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleId,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.RuleID != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.RuleID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// FromError maps library errors onto stable codes. nil maps to nil.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	if rule := txerr.RuleID(err); rule != "" {
		out := &CodedError{RuleID: rule, Message: err.Error()}
		switch {
		case txerr.IsKind(err, txerr.KindEncoding):
			out.Code = ErrEncoding
		case txerr.IsKind(err, txerr.KindSignatureVerification):
			out.Code = ErrSignatureInvalid
		case txerr.IsKind(err, txerr.KindInputKeyMismatch):
			out.Code = ErrInputKeyMismatch
		case txerr.IsKind(err, txerr.KindInvalidTx), txerr.IsKind(err, txerr.KindCanonical):
			out.Code = ErrInvalidTransaction
		default:
			out.Code = ErrInternal
		}
		return out
	}
	switch {
	case errors.Is(err, txstore.ErrMissingCAS):
		return NewError(ErrMissingCAS, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return NewError(ErrNotFound, err.Error())
	case errors.Is(err, storage.ErrCIDMismatch), errors.Is(err, txstore.ErrBodyHasID):
		return NewError(ErrCIDMismatch, err.Error())
	case errors.Is(err, storage.ErrInvalidCID):
		return NewError(ErrInvalidCID, err.Error())
	}
	return NewError(ErrInternal, err.Error())
}
