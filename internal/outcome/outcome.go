// Package outcome tags the result of a calendar flow so the boundary layer can
// decide how to render it.
package outcome

import "fmt"

// Kind classifies how a flow ended.
type Kind int

const (
	OK Kind = iota
	NotFound
	InvalidInput
	RemoteFailure
	Recurrence
	Duplicate
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case InvalidInput:
		return "invalid_input"
	case RemoteFailure:
		return "remote_failure"
	case Recurrence:
		return "recurrence"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result carries the kind plus an optional message, payload and cause.
type Result struct {
	Kind    Kind
	Message string
	Data    any
	Err     error
}

func Success(msg string) Result {
	return Result{Kind: OK, Message: msg}
}

func SuccessWith(data any) Result {
	return Result{Kind: OK, Data: data}
}

func Missing(msg string) Result {
	return Result{Kind: NotFound, Message: msg}
}

func Invalid(err error) Result {
	return Result{Kind: InvalidInput, Message: err.Error(), Err: err}
}

func Failed(err error) Result {
	return Result{Kind: RemoteFailure, Message: err.Error(), Err: err}
}

func RecurringTarget() Result {
	return Result{Kind: Recurrence, Message: "recurrence"}
}

func AlreadyExists(msg string) Result {
	return Result{Kind: Duplicate, Message: msg}
}
