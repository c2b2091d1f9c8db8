package attendance

import (
	"errors"
	"fmt"
)

// Reason classifies an expected rejection. Values are part of the HTTP contract.
type Reason string

const (
	ReasonNotFound       Reason = "not-found"
	ReasonColorMismatch  Reason = "color-mismatch"
	ReasonAlreadyDone    Reason = "already-done"
	ReasonPrecondition   Reason = "precondition-not-met"
	ReasonEventNotActive Reason = "event-not-active"
	ReasonStoreConflict  Reason = "store-conflict"
	ReasonInvalidRequest Reason = "invalid-request"
)

// Rejection is a recoverable, caller-facing outcome. It is never a system fault.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return string(r.Reason)
	}
	return r.Message
}

// Is matches any Rejection carrying the same reason, so errors.Is(err, ErrAlreadyDone) works
// for rejections built with a specific message.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

var (
	ErrNotFound       = &Rejection{Reason: ReasonNotFound, Message: "not found"}
	ErrInvalidToken   = &Rejection{Reason: ReasonColorMismatch, Message: "invalid or expired QR (color mismatch)"}
	ErrPrecondition   = &Rejection{Reason: ReasonPrecondition, Message: "precondition not met"}
	ErrAlreadyDone    = &Rejection{Reason: ReasonAlreadyDone, Message: "already done"}
	ErrOutOfRange     = &Rejection{Reason: ReasonEventNotActive, Message: "event is not active on this day"}
	ErrConflict       = &Rejection{Reason: ReasonStoreConflict, Message: "conflicting write"}
	ErrInvalidRequest = &Rejection{Reason: ReasonInvalidRequest, Message: "invalid request"}
)

func reject(base *Rejection, format string, args ...any) error {
	return &Rejection{Reason: base.Reason, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return reject(ErrInvalidRequest, format, args...)
}

// AsRejection extracts the rejection from err, if any.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
