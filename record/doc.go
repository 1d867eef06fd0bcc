// Package record defines the endpoint and task data model shared by the
// store, the fleet coordinator, and the HTTP layer.
//
// Endpoints and tasks travel over the wire and across the store boundary as
// loose mappings (map[string]any). This package is the single place where
// loose input becomes typed data:
//
//   - Sanitize turns an arbitrary mapping into a canonical Task, applying
//     defaults, dropping unknown keys, and reporting which recognized fields
//     the caller actually supplied. That provided-field set is what makes
//     partial result merges safe: a report carrying only stdout must not
//     reset a previously stored exit code.
//
//   - FromDoc rebuilds an Endpoint from a stored document and normalizes it
//     on the way in: tasks that fail sanitization are dropped rather than
//     failing the whole record, duplicate task ids collapse to the last
//     entry, legacy "id" keys migrate to "task_id", and stray top-level
//     result mappings left behind by the old storage format are removed.
//
// All other packages only ever see canonical records.
package record
