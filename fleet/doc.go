// Package fleet coordinates a small fleet of remote endpoints.
//
// The Coordinator owns the lifecycle of endpoint records: registration with
// duplicate-identity suppression, task queueing, pending-task delivery on
// checkin, and result merging. All state lives behind a store.Store; every
// operation is a whole-record read-modify-write.
//
// # Concurrency
//
// Operations against the same endpoint id are serialized by a per-id mutex
// held for the entire load-mutate-persist sequence, so overlapping requests
// from the same agent cannot lose updates. Operations against different ids
// proceed in parallel. Registrations additionally serialize behind a single
// mutex so the duplicate-identity scan always sees a consistent snapshot of
// the other records' identity fields.
//
// # Usage
//
//	st, _ := store.NewFileStore("data")
//	coord := fleet.New(fleet.Config{Store: st, Logger: logger})
//
//	id := coord.GenerateID()
//	err := coord.Register(id, info)
//
//	tasks, err := coord.Checkin(id) // updates last_seen, returns pending
//	err = coord.AddTask(id, map[string]any{"task_id": "t1", "instruction": "syscall", "arg": "ls"})
//	err = coord.PostResult(id, map[string]any{"task_id": "t1", "exit_code": 0, "stdout": "..."})
package fleet
