package exchange

import (
	"encoding/json"
	"fmt"
)

// Code is the status keyword of a file operation result
type Code string

const (
	CodeNotFound   Code = "not_found"
	CodeDeleted    Code = "deleted"
	CodeUnexpected Code = "unexpected"
)

// Valid reports whether c belongs to the closed set of result codes
func (c Code) Valid() bool {
	switch c {
	case CodeNotFound, CodeDeleted, CodeUnexpected:
		return true
	}
	return false
}

// Result is the outcome reported back to the requesting node.
// Message is only meaningful for CodeUnexpected.
type Result struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// NewResult builds a result from a status keyword and optional detail.
// It panics on a code outside the closed set since that is a caller bug.
func NewResult(code Code, message string) Result {
	if !code.Valid() {
		panic(fmt.Sprintf("exchange: invalid result code %q", code))
	}
	if code != CodeUnexpected {
		message = ""
	}
	return Result{Code: code, Message: message}
}

func NotFound() Result {
	return NewResult(CodeNotFound, "")
}

func Deleted() Result {
	return NewResult(CodeDeleted, "")
}

func Unexpected(message string) Result {
	return NewResult(CodeUnexpected, message)
}

// UnmarshalJSON rejects codes outside the closed set
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Code.Valid() {
		return fmt.Errorf("invalid result code %q", raw.Code)
	}
	*r = NewResult(raw.Code, raw.Message)
	return nil
}

func (r Result) String() string {
	if r.Message == "" {
		return string(r.Code)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}
