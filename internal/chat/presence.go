package chat

import (
	"sync"
	"time"
)

// presenceWindow is how recent a heartbeat must be for a connection to
// count as a live viewer.
const presenceWindow = 30 * time.Second

type presenceRecord struct {
	room string
	seen time.Time
}

// Presence tracks best-effort viewer heartbeats per connection,
// independent of authentication. Records are never swept; staleness is
// judged at read time and records disappear only on Drop.
type Presence struct {
	mu      sync.Mutex
	records map[string]presenceRecord
	now     func() time.Time
}

func NewPresence() *Presence {
	return &Presence{
		records: make(map[string]presenceRecord),
		now:     time.Now,
	}
}

// Touch upserts the heartbeat timestamp for a connection.
func (p *Presence) Touch(connID, room string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[connID] = presenceRecord{room: room, seen: p.now()}
}

// LiveCount returns the number of distinct connections whose heartbeat
// for the room is within the recency window (inclusive).
func (p *Presence) LiveCount(room string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-presenceWindow)
	count := 0
	for _, record := range p.records {
		if record.room == room && !record.seen.Before(cutoff) {
			count++
		}
	}
	return count
}

// Drop removes a connection's heartbeat record.
func (p *Presence) Drop(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, connID)
}
