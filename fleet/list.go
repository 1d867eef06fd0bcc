package fleet

import (
	"fmt"
	"sort"
	"time"
)

// Summary is the operator-facing view of one endpoint.
type Summary struct {
	ID           string `json:"id"`
	Hostname     string `json:"hostname"`
	IPAddress    string `json:"ip_address"`
	LastSeen     string `json:"last_seen"`
	TaskCount    int    `json:"task_count"`
	PendingCount int    `json:"pending_count"`

	// Stale is true when last_seen is older than the configured threshold.
	Stale bool `json:"stale"`
}

// List returns a summary of every registered endpoint, sorted by id. It is
// read-only: records pass through normalization for the counts but nothing
// is persisted.
func (c *Coordinator) List() ([]Summary, error) {
	ids, err := c.store.ListIDs()
	if err != nil {
		return nil, fmt.Errorf("scan fleet: %w", err)
	}
	sort.Strings(ids)

	now := time.Now()
	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		e, err := c.load(id)
		if err != nil {
			continue
		}

		s := Summary{
			ID:        e.ID,
			Hostname:  e.Hostname,
			IPAddress: e.IPAddress,
			LastSeen:  e.LastSeen,
			TaskCount: len(e.Tasks),
		}
		for _, t := range e.Tasks {
			if !t.Responded {
				s.PendingCount++
			}
		}
		if c.staleAfter > 0 {
			if seen, err := time.Parse(time.RFC3339Nano, e.LastSeen); err == nil {
				s.Stale = now.Sub(seen) > c.staleAfter
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
