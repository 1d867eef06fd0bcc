package record

import (
	"errors"
	"fmt"
)

// Validation errors returned by Sanitize.
var (
	ErrNotMap        = errors.New("task payload is not a mapping")
	ErrMissingTaskID = errors.New("missing task_id")
)

// Canonical task field names as they appear on the wire and on disk.
const (
	FieldTaskID              = "task_id"
	FieldLegacyID            = "id"
	FieldAssignedAt          = "assigned_at"
	FieldInstruction         = "instruction"
	FieldArg                 = "arg"
	FieldExitCode            = "exit_code"
	FieldStdout              = "stdout"
	FieldStderr              = "stderr"
	FieldStoppedProcessingAt = "stopped_processing_at"
	FieldResponded           = "responded"
	FieldInventory           = "inventory"
)

// Fields is the set of recognized task fields a caller explicitly supplied.
// Result merges consult it so that defaulted fields never clobber stored
// values. The task id itself is never a member.
type Fields map[string]struct{}

// Has reports whether the named field was supplied.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Sanitize canonicalizes an arbitrary mapping into a Task. Unknown keys are
// dropped, recognized fields are copied, and defaults fill the rest. The
// task id is taken from "task_id", falling back to the legacy "id" key.
//
// When forced is non-nil it overrides the responded flag regardless of the
// input: the queue forces false on creation, the result merge forces true.
//
// The returned Fields records which recognized fields (other than the task
// id) were present and well-typed in the input.
func Sanitize(input any, forced *bool) (Task, Fields, error) {
	m, ok := input.(map[string]any)
	if !ok {
		return Task{}, nil, ErrNotMap
	}

	id := stringValue(m[FieldTaskID])
	if id == "" {
		id = stringValue(m[FieldLegacyID])
	}
	if id == "" {
		return Task{}, nil, ErrMissingTaskID
	}

	t := Task{TaskID: id, Inventory: map[string]string{}}
	provided := make(Fields)

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{FieldAssignedAt, &t.AssignedAt},
		{FieldInstruction, &t.Instruction},
		{FieldArg, &t.Arg},
		{FieldStdout, &t.Stdout},
		{FieldStderr, &t.Stderr},
		{FieldStoppedProcessingAt, &t.StoppedProcessingAt},
	} {
		if v, ok := m[f.name]; ok {
			if s, ok := v.(string); ok {
				*f.dst = s
				provided[f.name] = struct{}{}
			}
		}
	}

	if v, ok := m[FieldExitCode]; ok {
		if code, ok := intValue(v); ok {
			t.ExitCode = &code
			provided[FieldExitCode] = struct{}{}
		}
	}

	if v, ok := m[FieldResponded]; ok {
		if b, ok := v.(bool); ok {
			t.Responded = b
			provided[FieldResponded] = struct{}{}
		}
	}

	if v, ok := m[FieldInventory]; ok {
		if inv, ok := inventoryValue(v); ok {
			t.Inventory = inv
			provided[FieldInventory] = struct{}{}
		}
	}

	if forced != nil {
		t.Responded = *forced
	}

	return t, provided, nil
}

// Merge applies a sanitized result onto a stored task. Responded is always
// applied; every other field only when the reporter explicitly supplied it,
// so a partial report cannot reset fields recorded earlier.
func (t *Task) Merge(res Task, provided Fields) {
	t.Responded = res.Responded
	if provided.Has(FieldAssignedAt) {
		t.AssignedAt = res.AssignedAt
	}
	if provided.Has(FieldInstruction) {
		t.Instruction = res.Instruction
	}
	if provided.Has(FieldArg) {
		t.Arg = res.Arg
	}
	if provided.Has(FieldExitCode) {
		t.ExitCode = res.ExitCode
	}
	if provided.Has(FieldStdout) {
		t.Stdout = res.Stdout
	}
	if provided.Has(FieldStderr) {
		t.Stderr = res.Stderr
	}
	if provided.Has(FieldStoppedProcessingAt) {
		t.StoppedProcessingAt = res.StoppedProcessingAt
	}
	if provided.Has(FieldInventory) {
		t.Inventory = res.Inventory
	}
}

// stringValue returns v as a string when it is one, else "".
func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// intValue coerces the numeric types the decoders produce: JSON numbers
// arrive as float64, TOML integers as int64. Non-integral floats and
// anything else are treated as absent rather than failing the payload.
func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// inventoryValue accepts a string-keyed mapping, stringifying scalar values
// and dropping nested ones.
func inventoryValue(v any) (map[string]string, bool) {
	switch m := v.(type) {
	case map[string]string:
		inv := make(map[string]string, len(m))
		for k, val := range m {
			inv[k] = val
		}
		return inv, true
	case map[string]any:
		inv := make(map[string]string, len(m))
		for k, val := range m {
			switch s := val.(type) {
			case string:
				inv[k] = s
			case bool, int, int64, float64:
				inv[k] = fmt.Sprint(s)
			}
		}
		return inv, true
	}
	return nil, false
}
