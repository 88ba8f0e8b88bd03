// Package apierrors classifies every error the controller and dispatcher
// can produce into the fixed set of kinds in spec §7, each with its own
// response policy. It generalizes the teacher's pkg/server/errors.HTTPError
// (a single status+code+description type) into one type carrying a Kind,
// from which both the HTTP status and the consumer requeue/drop decision
// are derived.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// ErrRequest is the sentinel every *Error unwraps to, so callers can use
// errors.Is(err, apierrors.ErrRequest) without caring about Kind.
var ErrRequest = errors.New("request error")

// Kind is one of the nine error categories in spec §7.
type Kind string

const (
	KindNotFound            Kind = "NotFound"
	KindConflict            Kind = "Conflict"
	KindValidation          Kind = "Validation"
	KindForbidden           Kind = "Forbidden"
	KindPreconditionNotMet  Kind = "PreconditionNotMet"
	KindUploadFailed        Kind = "UploadFailed"
	KindExternalServiceError Kind = "ExternalServiceError"
	KindUnhealthy           Kind = "Unhealthy"
	KindInconsistentState   Kind = "InconsistentState"
)

var statusForKind = map[Kind]int{
	KindNotFound:             http.StatusNotFound,
	KindConflict:             http.StatusConflict,
	KindValidation:           http.StatusBadRequest,
	KindForbidden:            http.StatusForbidden,
	KindPreconditionNotMet:   http.StatusPreconditionFailed,
	KindUploadFailed:         http.StatusBadGateway,
	KindExternalServiceError: http.StatusBadGateway,
	KindUnhealthy:            http.StatusServiceUnavailable,
	KindInconsistentState:    http.StatusInternalServerError,
}

// Error is the typed error every handler and message consumer should
// return. It carries enough context to both answer an HTTP request and
// decide a consumer's ack/requeue policy.
type Error struct {
	Kind        Kind
	description string
	err         error
	fields      []string
}

func newError(kind Kind, description string) *Error {
	return &Error{Kind: kind, description: description}
}

// NotFound reports a missing entity (controller) or a 404 from the cluster
// API (dispatcher). Callers should clean up any orphaned row after
// returning this.
func NotFound(resource, id string) *Error {
	return newError(KindNotFound, fmt.Sprintf("%s %q not found", resource, id))
}

// Conflict reports a name collision, a delete-of-a-deleting entity, or a
// duplicate assignment.
func Conflict(description string) *Error {
	return newError(KindConflict, description)
}

// Validation reports bad input, e.g. a quota that exceeds available
// capacity or an attempt to remove a referenced secret. fields names the
// offending fields/resources so callers can render "GPU, memory" style
// messages (spec §4.6 "failures are reported as a list").
func Validation(description string, fields ...string) *Error {
	e := newError(KindValidation, description)
	e.fields = fields

	return e
}

// Fields returns the offending field/resource names attached by
// Validation, if any.
func (e *Error) Fields() []string {
	return e.fields
}

// Forbidden reports a JWT lacking the required role or project membership.
func Forbidden(description string) *Error {
	return newError(KindForbidden, description)
}

// PreconditionNotMet reports an action attempted against an unhealthy
// cluster.
func PreconditionNotMet(description string) *Error {
	return newError(KindPreconditionNotMet, description)
}

// UploadFailed reports a blob-store failure.
func UploadFailed(err error) *Error {
	return newError(KindUploadFailed, "upload failed").withError(err)
}

// ExternalServiceError reports a transient failure from the external
// auth/identity service; the detail is preserved for the caller.
func ExternalServiceError(err error) *Error {
	return newError(KindExternalServiceError, err.Error()).withError(err)
}

// Unhealthy reports a degraded target component.
func Unhealthy(description string) *Error {
	return newError(KindUnhealthy, description)
}

// InconsistentState reports an invariant violated at runtime; these are
// always logged structurally alongside the 500 response.
func InconsistentState(description string) *Error {
	return newError(KindInconsistentState, description)
}

func (e *Error) withError(err error) *Error {
	e.err = err

	return e
}

// Unwrap implements Go 1.13 errors, so every *Error satisfies
// errors.Is(err, ErrRequest).
func (e *Error) Unwrap() error {
	return ErrRequest
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.description
}

// Status returns the HTTP status code this kind maps to.
func (e *Error) Status() int {
	return statusForKind[e.Kind]
}

// Requeue reports whether a message consumer should nack-and-requeue on
// this error, vs. dropping the message. Only NotFound (a cleanly resolved
// orphan) and Validation (a message that will never become valid) are
// terminal; everything else is presumed transient.
func (e *Error) Requeue() bool {
	switch e.Kind {
	case KindNotFound, KindValidation:
		return false
	default:
		return true
	}
}

// Write renders the error as an HTTP response, logging the underlying
// detail first (mirrors the teacher's HTTPError.Write: NotFound/Conflict
// get a bare status code, everything else gets a JSON body).
func (e *Error) Write(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	var details []interface{}
	if e.description != "" {
		details = append(details, "detail", e.description)
	}

	if e.err != nil {
		details = append(details, "error", e.err)
	}

	if len(e.fields) > 0 {
		details = append(details, "fields", e.fields)
	}

	logger.Info("request error", details...)

	w.Header().Set("Cache-Control", "no-cache")

	status := e.Status()

	switch status {
	case http.StatusNotFound, http.StatusConflict:
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := struct {
		Kind        Kind     `json:"kind"`
		Description string   `json:"description"`
		Fields      []string `json:"fields,omitempty"`
	}{
		Kind:        e.Kind,
		Description: e.description,
		Fields:      e.fields,
	}

	_ = writeJSON(w, body)
}

// As unwraps err into an *Error, if it is (or wraps) one.
func As(err error) (*Error, bool) {
	var apiErr *Error

	ok := errors.As(err, &apiErr)

	return apiErr, ok
}
