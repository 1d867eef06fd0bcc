package fleet

import (
	"github.com/perchsec/roost/record"
)

// Checkin records endpoint liveness and returns its pending tasks. A task is
// visible to checkin exactly while responded is false; once a result is
// posted it disappears from every later checkin.
func (c *Coordinator) Checkin(id string) ([]record.Task, error) {
	unlock := c.lockEndpoint(id)
	defer unlock()

	e, err := c.load(id)
	if err != nil {
		return nil, err
	}

	e.LastSeen = c.now()
	if err := c.persist(e); err != nil {
		return nil, err
	}

	pending := e.Pending()
	c.logger.Debug().
		Str("endpoint_id", id).
		Int("pending", len(pending)).
		Msg("endpoint checked in")
	return pending, nil
}
