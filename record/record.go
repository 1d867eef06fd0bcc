package record

import (
	"time"
)

// Reserved top-level keys of an endpoint document. Everything else is
// descriptive metadata that passes through the core untouched.
const (
	keyID           = "id"
	keyHostname     = "hostname"
	keyIPAddress    = "ip_address"
	keyLastSeen     = "last_seen"
	keyRegisteredAt = "registered_at"
	keyTasks        = "tasks"
)

// Task is one unit of work queued for an endpoint. A task is created by the
// queue, mutated logically once by a result merge, and never deleted.
type Task struct {
	// TaskID is unique within the owning endpoint's task list.
	TaskID string `json:"task_id"`

	// AssignedAt is set by the task's originator, not by the coordinator.
	AssignedAt string `json:"assigned_at"`

	// Instruction and Arg are opaque command descriptors.
	Instruction string `json:"instruction"`
	Arg         string `json:"arg"`

	// ExitCode is nil until the endpoint reports completion.
	ExitCode *int64 `json:"exit_code"`

	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// StoppedProcessingAt is empty while the task is still running.
	StoppedProcessingAt string `json:"stopped_processing_at"`

	// Responded flips to true when a result is merged and never reverts.
	Responded bool `json:"responded"`

	// Inventory carries key/value facts reported by inventory tasks.
	Inventory map[string]string `json:"inventory"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.ExitCode != nil {
		code := *t.ExitCode
		c.ExitCode = &code
	}
	if t.Inventory != nil {
		c.Inventory = make(map[string]string, len(t.Inventory))
		for k, v := range t.Inventory {
			c.Inventory[k] = v
		}
	}
	return c
}

// Doc returns the task as a storable mapping. Every recognized field is
// present so that a stored task round-trips through Sanitize unchanged;
// exit_code is omitted while nil because the stores cannot represent null.
func (t Task) Doc() map[string]any {
	doc := map[string]any{
		FieldTaskID:              t.TaskID,
		FieldAssignedAt:          t.AssignedAt,
		FieldInstruction:         t.Instruction,
		FieldArg:                 t.Arg,
		FieldStdout:              t.Stdout,
		FieldStderr:              t.Stderr,
		FieldStoppedProcessingAt: t.StoppedProcessingAt,
		FieldResponded:           t.Responded,
	}
	if t.ExitCode != nil {
		doc[FieldExitCode] = *t.ExitCode
	}
	inv := make(map[string]string, len(t.Inventory))
	for k, v := range t.Inventory {
		inv[k] = v
	}
	doc[FieldInventory] = inv
	return doc
}

// Endpoint is the coordinator's persisted state for one remote agent.
type Endpoint struct {
	// ID is the generated endpoint identifier, immutable once assigned.
	ID string `json:"id"`

	// Hostname and IPAddress identify the machine for duplicate detection.
	Hostname  string `json:"hostname"`
	IPAddress string `json:"ip_address"`

	// LastSeen is updated on every checkin; RegisteredAt never changes.
	LastSeen     string `json:"last_seen"`
	RegisteredAt string `json:"registered_at"`

	// Tasks in insertion order. Append-only except for result merges.
	Tasks []Task `json:"tasks"`

	// Extra holds descriptive registration fields (os family, inventory,
	// ...) that the core stores verbatim and never interprets.
	Extra map[string]any `json:"-"`
}

// Doc returns the endpoint as a storable mapping, extra fields included.
func (e *Endpoint) Doc() map[string]any {
	doc := make(map[string]any, len(e.Extra)+6)
	for k, v := range e.Extra {
		doc[k] = v
	}
	tasks := make([]map[string]any, len(e.Tasks))
	for i, t := range e.Tasks {
		tasks[i] = t.Doc()
	}
	doc[keyID] = e.ID
	doc[keyHostname] = e.Hostname
	doc[keyIPAddress] = e.IPAddress
	doc[keyLastSeen] = e.LastSeen
	doc[keyRegisteredAt] = e.RegisteredAt
	doc[keyTasks] = tasks
	return doc
}

// Pending returns the tasks not yet responded to, in original order.
func (e *Endpoint) Pending() []Task {
	pending := make([]Task, 0, len(e.Tasks))
	for _, t := range e.Tasks {
		if !t.Responded {
			pending = append(pending, t.Clone())
		}
	}
	return pending
}

// Timestamp returns the current UTC time in RFC 3339 form with a trailing Z,
// the format used for last_seen, registered_at and assigned_at throughout.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
