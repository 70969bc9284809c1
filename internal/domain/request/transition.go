package request

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// EventType enumerates the state machine events.
type EventType string

const (
	EventApprove          EventType = "approve"
	EventReject           EventType = "reject"
	EventPaymentConfirmed EventType = "payment_confirmed"
	EventAdvance          EventType = "advance"
	EventComplete         EventType = "complete"
	EventExpire           EventType = "expire"
)

// Event is a state machine input. Reject events carry the mandatory
// rejection note.
type Event struct {
	Type          EventType
	RejectionNote string
}

// Approve moves a pending request toward work: online-paid requests go to
// waiting_payment, cash requests skip straight to the kind's work state.
func Approve() Event { return Event{Type: EventApprove} }

// Reject declines a pending request with the given note.
func Reject(note string) Event { return Event{Type: EventReject, RejectionNote: note} }

// PaymentConfirmed records a verified online payment.
func PaymentConfirmed() Event { return Event{Type: EventPaymentConfirmed} }

// Advance moves a rental from arranging_delivery to active_rental.
func Advance() Event { return Event{Type: EventAdvance} }

// Complete finishes the active work state.
func Complete() Event { return Event{Type: EventComplete} }

// Expire reaps a stale pending or waiting_payment request.
func Expire() Event { return Event{Type: EventExpire} }

// State machine failures. ErrMissingRejectionReason is a validation error;
// the others indicate caller misuse or a lost race and map to HTTP 409.
var (
	ErrMissingRejectionReason = errors.New("rejection requires a non-empty note")
	ErrNotYetExpirable        = errors.New("request hold has not elapsed")
	// ErrNotAwaitingPayment is returned when a payment operation targets a
	// request that is not in waiting_payment.
	ErrNotAwaitingPayment = errors.New("request is not awaiting payment")
)

// IllegalTransitionError names the state a request was in and the event that
// was not allowed from it.
type IllegalTransitionError struct {
	From  Status
	Event EventType
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a request in status %s", e.Event, e.From)
}

// Transition applies ev to r in place, stamping UpdatedAt on success.
// Transitions never skip states; invalid events fail with
// IllegalTransitionError and leave r untouched. Coupon consumption is the
// caller's concern: the state machine itself is pure.
func Transition(r *Request, ev Event, now time.Time) error {
	switch ev.Type {
	case EventApprove:
		if r.Status != StatusPending {
			return &IllegalTransitionError{From: r.Status, Event: ev.Type}
		}
		if r.PaymentMethod == PaymentCash {
			r.Status = workStartStatus(r.Kind)
			r.ExpiresAt = nil
		} else {
			r.Status = StatusWaitingPayment
		}

	case EventReject:
		if r.Status != StatusPending {
			return &IllegalTransitionError{From: r.Status, Event: ev.Type}
		}
		if ev.RejectionNote == "" {
			return ErrMissingRejectionReason
		}
		r.Status = StatusRejected
		r.RejectionNote = ev.RejectionNote

	case EventPaymentConfirmed:
		if r.Status != StatusWaitingPayment {
			return &IllegalTransitionError{From: r.Status, Event: ev.Type}
		}
		r.Status = workStartStatus(r.Kind)
		r.ExpiresAt = nil

	case EventAdvance:
		if r.Kind != KindRental || r.Status != StatusArrangingDelivery {
			return &IllegalTransitionError{From: r.Status, Event: ev.Type}
		}
		r.Status = StatusActiveRental

	case EventComplete:
		if r.Status != activeStatus(r.Kind) {
			return &IllegalTransitionError{From: r.Status, Event: ev.Type}
		}
		r.Status = StatusCompleted

	case EventExpire:
		if r.Status != StatusPending && r.Status != StatusWaitingPayment {
			return &IllegalTransitionError{From: r.Status, Event: ev.Type}
		}
		if r.ExpiresAt == nil || now.Before(*r.ExpiresAt) {
			return ErrNotYetExpirable
		}
		r.Status = StatusExpired

	default:
		return errors.Errorf("unknown event type: %q", ev.Type)
	}

	r.UpdatedAt = now
	return nil
}
