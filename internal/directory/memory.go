package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"badgepass/internal/badge/ports"
	id "badgepass/pkg/domain"
	"badgepass/pkg/platform/sentinel"
)

// InMemory is a seedable directory for local runs and tests.
type InMemory struct {
	mu           sync.RWMutex
	participants map[id.ParticipantID]ports.Participant
}

func NewInMemory(seed ...ports.Participant) *InMemory {
	d := &InMemory{participants: make(map[id.ParticipantID]ports.Participant, len(seed))}
	for _, p := range seed {
		d.participants[p.ID] = p
	}
	return d
}

// Put inserts or replaces a participant record.
func (d *InMemory) Put(p ports.Participant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.participants[p.ID] = p
}

// Delete removes a participant, as when a registration is withdrawn.
func (d *InMemory) Delete(participantID id.ParticipantID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.participants, participantID)
}

func (d *InMemory) FindParticipant(_ context.Context, participantID id.ParticipantID) (*ports.Participant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.participants[participantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

type seedRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Confirmed bool   `json:"confirmed"`
}

// ParseSeed decodes a JSON array of participants, as supplied to the memory
// directory through configuration. An empty document yields no participants.
func ParseSeed(raw string) ([]ports.Participant, error) {
	if raw == "" {
		return nil, nil
	}
	var records []seedRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode directory seed: %w", err)
	}
	out := make([]ports.Participant, 0, len(records))
	for i, rec := range records {
		participantID, err := id.ParseParticipantID(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("directory seed entry %d: %w", i, err)
		}
		out = append(out, ports.Participant{
			ID:        participantID,
			Name:      rec.Name,
			Category:  rec.Category,
			Confirmed: rec.Confirmed,
		})
	}
	return out, nil
}
