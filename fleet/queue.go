package fleet

import (
	"github.com/perchsec/roost/record"
)

// AddTask sanitizes a task payload and appends it to the endpoint's queue.
// The responded flag is forced to false regardless of the input.
func (c *Coordinator) AddTask(id string, input any) error {
	unlock := c.lockEndpoint(id)
	defer unlock()

	e, err := c.load(id)
	if err != nil {
		return err
	}

	notResponded := false
	task, _, err := record.Sanitize(input, &notResponded)
	if err != nil {
		return err
	}

	e.Tasks = append(e.Tasks, task)
	if err := c.persist(e); err != nil {
		return err
	}

	c.logger.Info().
		Str("endpoint_id", id).
		Str("task_id", task.TaskID).
		Str("instruction", task.Instruction).
		Msg("task queued")
	return nil
}

// Pending returns the endpoint's undelivered tasks in creation order.
func (c *Coordinator) Pending(id string) ([]record.Task, error) {
	unlock := c.lockEndpoint(id)
	defer unlock()

	e, err := c.load(id)
	if err != nil {
		return nil, err
	}
	return e.Pending(), nil
}

// Tasks returns the endpoint's full task list, responded tasks included.
func (c *Coordinator) Tasks(id string) ([]record.Task, error) {
	unlock := c.lockEndpoint(id)
	defer unlock()

	e, err := c.load(id)
	if err != nil {
		return nil, err
	}

	tasks := make([]record.Task, len(e.Tasks))
	for i, t := range e.Tasks {
		tasks[i] = t.Clone()
	}
	return tasks, nil
}

// PostResult merges a reported result into the matching task. Responded is
// forced to true; every other field is applied only if the reporter
// explicitly supplied it, so a partial report (say, stdout only) cannot
// reset previously stored fields. Re-reporting an already-responded task
// succeeds and leaves unsupplied fields alone.
func (c *Coordinator) PostResult(id string, input any) error {
	unlock := c.lockEndpoint(id)
	defer unlock()

	e, err := c.load(id)
	if err != nil {
		return err
	}

	responded := true
	res, provided, err := record.Sanitize(input, &responded)
	if err != nil {
		return err
	}

	merged := false
	for i := range e.Tasks {
		if e.Tasks[i].TaskID == res.TaskID {
			e.Tasks[i].Merge(res, provided)
			merged = true
			break
		}
	}
	if !merged {
		c.logger.Warn().
			Str("endpoint_id", id).
			Str("task_id", res.TaskID).
			Msg("result for unknown task")
		return ErrUnknownTask
	}

	if err := c.persist(e); err != nil {
		return err
	}

	c.logger.Info().
		Str("endpoint_id", id).
		Str("task_id", res.TaskID).
		Msg("result merged")
	return nil
}
