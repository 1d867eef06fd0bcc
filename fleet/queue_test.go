package fleet

import (
	"errors"
	"reflect"
	"testing"

	"github.com/perchsec/roost/record"
)

func TestCoordinator_AddTaskAndPending(t *testing.T) {
	c, _ := newTestCoordinator(t)
	id := register(t, c, map[string]any{"hostname": "h1", "ip_address": "1.1.1.1"})

	err := c.AddTask(id, map[string]any{
		"task_id":     "t1",
		"instruction": "syscall",
		"arg":         "ls",
		"responded":   true, // forced back to false on creation
	})
	if err != nil {
		t.Fatalf("AddTask error: %v", err)
	}

	pending, err := c.Pending(id)
	if err != nil {
		t.Fatalf("Pending error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	got := pending[0]
	if got.TaskID != "t1" || got.Instruction != "syscall" || got.Arg != "ls" {
		t.Errorf("pending task = %+v", got)
	}
	if got.Responded {
		t.Error("newly queued task must have responded=false")
	}
}

func TestCoordinator_AddTaskUnknownEndpoint(t *testing.T) {
	c, _ := newTestCoordinator(t)

	err := c.AddTask("no-such-endpoint", map[string]any{"task_id": "t1"})
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("AddTask error = %v, want ErrUnknownEndpoint", err)
	}
}

func TestCoordinator_AddTaskInvalidPayload(t *testing.T) {
	c, _ := newTestCoordinator(t)
	id := register(t, c, map[string]any{"hostname": "h1", "ip_address": "1.1.1.1"})

	if err := c.AddTask(id, map[string]any{"instruction": "syscall"}); !errors.Is(err, record.ErrMissingTaskID) {
		t.Errorf("AddTask error = %v, want ErrMissingTaskID", err)
	}
	if err := c.AddTask(id, "ls -la"); !errors.Is(err, record.ErrNotMap) {
		t.Errorf("AddTask error = %v, want ErrNotMap", err)
	}
}

func TestCoordinator_LegacyTaskShape(t *testing.T) {
	c, _ := newTestCoordinator(t)
	id := register(t, c, map[string]any{"hostname": "h1", "ip_address": "1.1.1.1"})

	// Old clients send {id, command}; id migrates, command is dropped.
	if err := c.AddTask(id, map[string]any{"id": "t1", "command": "ls"}); err != nil {
		t.Fatalf("AddTask error: %v", err)
	}

	tasks, _ := c.Tasks(id)
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	got := tasks[0]
	if got.TaskID != "t1" {
		t.Errorf("TaskID = %q, want t1", got.TaskID)
	}
	if got.Instruction != "" || got.Arg != "" || got.ExitCode != nil || got.Responded {
		t.Errorf("defaults not applied: %+v", got)
	}
	if _, ok := got.Doc()["command"]; ok {
		t.Error("unknown key command survived")
	}
}

func TestCoordinator_PostResultSelectiveMerge(t *testing.T) {
	c, _ := newTestCoordinator(t)
	id := register(t, c, map[string]any{"hostname": "h1", "ip_address": "1.1.1.1"})

	c.AddTask(id, map[string]any{"task_id": "t1", "instruction": "syscall", "arg": "ls"})

	// First report carries the full result.
	err := c.PostResult(id, map[string]any{
		"task_id":               "t1",
		"exit_code":             float64(2),
		"stderr":                "denied",
		"stopped_processing_at": "2025-06-01T00:01:00Z",
	})
	if err != nil {
		t.Fatalf("PostResult error: %v", err)
	}

	// Second, partial report: only stdout. Must not clobber the rest.
	if err := c.PostResult(id, map[string]any{"task_id": "t1", "stdout": "files"}); err != nil {
		t.Fatalf("second PostResult error: %v", err)
	}

	tasks, _ := c.Tasks(id)
	got := tasks[0]
	if !got.Responded {
		t.Error("responded not set")
	}
	if got.Stdout != "files" {
		t.Errorf("Stdout = %q, want files", got.Stdout)
	}
	if got.ExitCode == nil || *got.ExitCode != 2 {
		t.Errorf("ExitCode = %v, want preserved 2", got.ExitCode)
	}
	if got.Stderr != "denied" {
		t.Errorf("Stderr = %q, want preserved denied", got.Stderr)
	}
	if got.StoppedProcessingAt != "2025-06-01T00:01:00Z" {
		t.Errorf("StoppedProcessingAt = %q, want preserved", got.StoppedProcessingAt)
	}
}

func TestCoordinator_PostResultUnknownTaskLeavesRecordIntact(t *testing.T) {
	c, st := newTestCoordinator(t)
	id := register(t, c, map[string]any{"hostname": "h1", "ip_address": "1.1.1.1"})
	c.AddTask(id, map[string]any{"task_id": "t1"})

	before, _ := st.Get(id)

	err := c.PostResult(id, map[string]any{"task_id": "t9", "stdout": "stray"})
	if !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("PostResult error = %v, want ErrUnknownTask", err)
	}

	after, _ := st.Get(id)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("record mutated by failed result post:\nbefore = %v\nafter  = %v", before, after)
	}
}

func TestCoordinator_PostResultUnknownEndpoint(t *testing.T) {
	c, _ := newTestCoordinator(t)

	err := c.PostResult("no-such-endpoint", map[string]any{"task_id": "t1"})
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("PostResult error = %v, want ErrUnknownEndpoint", err)
	}
}

func TestCoordinator_PostResultLegacyIDTarget(t *testing.T) {
	c, _ := newTestCoordinator(t)
	id := register(t, c, map[string]any{"hostname": "h1", "ip_address": "1.1.1.1"})
	c.AddTask(id, map[string]any{"task_id": "t1"})

	// Old agents report with "id" instead of "task_id".
	if err := c.PostResult(id, map[string]any{"id": "t1", "stdout": "ok"}); err != nil {
		t.Fatalf("PostResult error: %v", err)
	}

	pending, _ := c.Pending(id)
	if len(pending) != 0 {
		t.Errorf("pending = %v, want empty after legacy-shaped result", pending)
	}
}

func TestCoordinator_PostResultMigratesLegacyRecordShape(t *testing.T) {
	c, st := newTestCoordinator(t)
	id := register(t, c, map[string]any{"hostname": "h1", "ip_address": "1.1.1.1"})

	// Simulate a record written by the old storage format: task keyed by
	// legacy "id" and a stray top-level result entry.
	st.Put(id, map[string]any{
		"hostname":   "h1",
		"ip_address": "1.1.1.1",
		"tasks":      []map[string]any{{"id": "t1", "instruction": "syscall"}},
		"t1":         map[string]any{"stdout": "out-of-band"},
	})

	if err := c.PostResult(id, map[string]any{"task_id": "t1", "exit_code": 0}); err != nil {
		t.Fatalf("PostResult error: %v", err)
	}

	doc, _ := st.Get(id)
	if _, ok := doc["t1"]; ok {
		t.Error("stray legacy result entry survived the merge")
	}

	tasks, _ := c.Tasks(id)
	if len(tasks) != 1 || tasks[0].TaskID != "t1" || !tasks[0].Responded {
		t.Errorf("tasks = %+v, want migrated t1 with responded=true", tasks)
	}
}

func TestCoordinator_PendingNeverIncludesResponded(t *testing.T) {
	c, _ := newTestCoordinator(t)
	id := register(t, c, map[string]any{"hostname": "h1", "ip_address": "1.1.1.1"})

	c.AddTask(id, map[string]any{"task_id": "t1"})
	c.AddTask(id, map[string]any{"task_id": "t2"})
	c.PostResult(id, map[string]any{"task_id": "t1", "exit_code": 0})

	pending, _ := c.Pending(id)
	if len(pending) != 1 || pending[0].TaskID != "t2" {
		t.Errorf("pending = %v, want only t2", pending)
	}
}
