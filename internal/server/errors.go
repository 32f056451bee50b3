package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sadopc/taskboard/internal/clog"
	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/view"
)

type Code string

const (
	CodeInvalidArgument Code = "invalid_argument"
	CodeNotFound        Code = "not_found"
	CodeCanceled        Code = "canceled"
	CodeInternal        Code = "internal"
	CodeUnknown         Code = "unknown"
)

func (c Code) HTTPCode() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Error is an API error. Msg is returned to the client, Err only goes to
// the request log.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func NewError(code Code, msg string, underlying error) *Error {
	return &Error{Code: code, Msg: msg, Err: underlying}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

type httpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toError maps domain errors onto API errors.
func toError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "connection closed", err)
	}
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		return NewError(CodeInvalidArgument, ve.Error(), err)
	}
	var pe *view.InvalidPageSizeError
	if errors.As(err, &pe) {
		return NewError(CodeInvalidArgument, pe.Error(), err)
	}
	if errors.Is(err, task.ErrNotFound) {
		return NewError(CodeNotFound, "task not found", err)
	}
	return NewError(CodeUnknown, "unknown error", err)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		writeError(ctx, w, NewError(CodeInternal, "server error", err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		clog.AddError(ctx, err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	clog.AddError(ctx, err)
	e := toError(err)
	body, mErr := json.Marshal(httpError{Code: string(e.Code), Message: e.Msg})
	if mErr != nil {
		body = []byte(`{"code":"internal","message":"server error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Code.HTTPCode())
	w.Write(append(body, '\n'))
}
