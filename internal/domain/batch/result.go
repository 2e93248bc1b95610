package batch

import "fmt"

// Action is a record mutation kind.
type Action string

// Mutation actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

// IsValid checks the action value.
func (a Action) IsValid() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionRemove
}

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of one record in a bulk mutation.
type Result struct {
	id     string
	action Action
	status ItemStatus
	err    error
}

// NewOK creates a successful item result.
func NewOK(id string, action Action) Result {
	return Result{id: id, action: action, status: StatusOK}
}

// NewError creates a failed item result.
func NewError(id string, action Action, err error) Result {
	return Result{id: id, action: action, status: StatusError, err: err}
}

// ID returns the record identifier.
func (r Result) ID() string { return r.id }

// Action returns the mutation applied to the record.
func (r Result) Action() Action { return r.action }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

func (r Result) String() string {
	if r.err != nil {
		return fmt.Sprintf("%s %s: %v", r.action, r.id, r.err)
	}
	return fmt.Sprintf("%s %s: %s", r.action, r.id, r.status)
}

// Failed returns the failed results, preserving order.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.status == StatusError {
			out = append(out, r)
		}
	}
	return out
}
