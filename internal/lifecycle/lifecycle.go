// Package lifecycle is the single source of truth for the certificate review
// state machine:
//
//	pending  --approve-->  approved   (terminal)
//	pending  --reject--->  rejected
//	rejected --edit----->  pending    (automatic resubmission)
//	pending  --edit----->  pending
//
// Every mutation attempted on an approved certificate fails with InvalidState.
package lifecycle

import (
	"fmt"

	"github.com/ishpreet160/CertFlow/internal/apierror"
)

// Status is the review state of a certificate.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Initial is the state every certificate is created in.
const Initial = StatusPending

// Event is something that can move a certificate between states.
type Event string

const (
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventEdit    Event = "edit"
	EventDelete  Event = "delete"
)

// transitions maps (from, event) to the resulting state. Delete has no
// target state; it is listed so CanApply treats it like any other event.
var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
		EventEdit:    StatusPending,
		EventDelete:  "",
	},
	StatusRejected: {
		EventEdit:   StatusPending,
		EventDelete: "",
	},
	StatusApproved: {},
}

// ParseStatus validates a persisted or client-supplied status value.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// ParseDecision maps a review request body value to its event. Only
// "approved" and "rejected" are accepted.
func ParseDecision(s string) (Event, error) {
	switch Status(s) {
	case StatusApproved:
		return EventApprove, nil
	case StatusRejected:
		return EventReject, nil
	default:
		return "", apierror.Validation("status must be 'approved' or 'rejected'")
	}
}

// Terminal reports whether no event may be applied from s.
func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

// Next returns the state reached by applying ev in from, or InvalidState.
func Next(from Status, ev Event) (Status, error) {
	targets, known := transitions[from]
	if !known {
		return "", apierror.InvalidState(fmt.Sprintf("unknown certificate status %q", from))
	}
	to, ok := targets[ev]
	if !ok {
		return "", apierror.InvalidState(invalidMessage(from, ev))
	}
	return to, nil
}

// CanApply reports whether ev is legal in from.
func CanApply(from Status, ev Event) bool {
	_, err := Next(from, ev)
	return err == nil
}

func invalidMessage(from Status, ev Event) string {
	if from == StatusApproved {
		switch ev {
		case EventEdit:
			return "approved certificates cannot be edited"
		case EventDelete:
			return "approved certificates cannot be deleted"
		default:
			return "certificate is already approved"
		}
	}
	return fmt.Sprintf("cannot %s a %s certificate", ev, from)
}
