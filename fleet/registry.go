package fleet

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID produces a new opaque endpoint identifier. Collisions are
// statistically negligible and are not checked against the store.
func (c *Coordinator) GenerateID() string {
	return uuid.NewString()
}

// Register creates the record for a new endpoint after scanning every other
// record for a matching (hostname, ip_address) pair. The scan is O(N) in
// fleet size, which is fine for the small, low-churn fleets this coordinator
// targets. The info document is stored verbatim apart from ensuring a tasks
// list exists; descriptive fields are never interpreted.
func (c *Coordinator) Register(id string, info map[string]any) error {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	unlock := c.lockEndpoint(id)
	defer unlock()

	hostname := docString(info, "hostname")
	ipAddress := docString(info, "ip_address")

	ids, err := c.store.ListIDs()
	if err != nil {
		return fmt.Errorf("scan fleet: %w", err)
	}
	for _, other := range ids {
		if other == id {
			continue
		}
		doc, err := c.store.Get(other)
		if err != nil {
			// Removed between list and get; identity can't collide with it.
			continue
		}
		if docString(doc, "hostname") == hostname && docString(doc, "ip_address") == ipAddress {
			c.logger.Warn().
				Str("endpoint_id", id).
				Str("hostname", hostname).
				Str("ip_address", ipAddress).
				Str("existing_id", other).
				Msg("registration rejected, identity already registered")
			return ErrDuplicateIdentity
		}
	}

	doc := make(map[string]any, len(info)+1)
	for k, v := range info {
		doc[k] = v
	}
	if _, ok := doc["tasks"]; !ok {
		doc["tasks"] = []map[string]any{}
	}

	if err := c.store.Put(id, doc); err != nil {
		return fmt.Errorf("persist %s: %w", id, err)
	}

	c.logger.Info().
		Str("endpoint_id", id).
		Str("hostname", hostname).
		Str("ip_address", ipAddress).
		Msg("endpoint registered")
	return nil
}
