package record

// FromDoc rebuilds an Endpoint from a stored document, normalizing it in the
// process. Normalization is defensive: an individual task that fails
// sanitization is dropped so one corrupt entry cannot make the whole record
// unreadable, duplicate task ids collapse to the last sanitized entry (kept
// at the position of the first), and legacy top-level result mappings keyed
// by a task id are removed.
//
// The id parameter is the store key and is authoritative; any "id" field in
// the document is ignored.
func FromDoc(id string, doc map[string]any) *Endpoint {
	e := &Endpoint{
		ID:        id,
		Hostname:  stringValue(doc[keyHostname]),
		IPAddress: stringValue(doc[keyIPAddress]),
		LastSeen:  stringValue(doc[keyLastSeen]),
		Extra:     make(map[string]any),
	}
	e.RegisteredAt = stringValue(doc[keyRegisteredAt])

	for k, v := range doc {
		switch k {
		case keyID, keyHostname, keyIPAddress, keyLastSeen, keyRegisteredAt, keyTasks:
		default:
			e.Extra[k] = v
		}
	}

	e.Tasks = normalizeTasks(doc[keyTasks])

	// Migration cleanup: the old format stored results as top-level record
	// entries keyed by task id.
	for _, t := range e.Tasks {
		if v, ok := e.Extra[t.TaskID]; ok {
			if _, isMap := v.(map[string]any); isMap {
				delete(e.Extra, t.TaskID)
			}
		}
	}

	return e
}

// normalizeTasks sanitizes every entry of a stored task list. The TOML
// decoder yields []map[string]any, the JSON decoder []any.
func normalizeTasks(v any) []Task {
	var raw []any
	switch list := v.(type) {
	case []any:
		raw = list
	case []map[string]any:
		raw = make([]any, len(list))
		for i, m := range list {
			raw[i] = m
		}
	default:
		return []Task{}
	}

	tasks := make([]Task, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, entry := range raw {
		t, _, err := Sanitize(entry, nil)
		if err != nil {
			continue
		}
		if i, seen := index[t.TaskID]; seen {
			tasks[i] = t
			continue
		}
		index[t.TaskID] = len(tasks)
		tasks = append(tasks, t)
	}
	return tasks
}
