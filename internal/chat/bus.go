package chat

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is one socket envelope, delivered to clients as
// {"event": ..., "data": ...}.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Delivery is an outbound event with its destination: a whole room when
// Room is set, a single connection otherwise.
type Delivery struct {
	Room  string
	Conn  string
	Event string
	Data  any
}

// Outbox receives events for one connection. Implementations must not
// block; the socket layer's outbox reports an error when its buffer is
// full and the bus drops the event.
type Outbox interface {
	Send(event Event) error
}

// Bus fans events out to connections grouped into rooms. Attachment and
// membership are separate: every connection attaches an outbox when it
// is accepted, but joins a room only after a successful login. Delivery
// is best-effort to whichever connections are live at the call.
type Bus struct {
	mu       sync.RWMutex
	outboxes map[string]Outbox
	rooms    map[string]map[string]bool // room -> set of conn ids
	member   map[string]string          // conn id -> joined room
}

func NewBus() *Bus {
	return &Bus{
		outboxes: make(map[string]Outbox),
		rooms:    make(map[string]map[string]bool),
		member:   make(map[string]string),
	}
}

func (b *Bus) Attach(connID string, outbox Outbox) {
	b.mu.Lock()
	b.outboxes[connID] = outbox
	total := len(b.outboxes)
	b.mu.Unlock()

	log.Debug().
		Str("connId", connID).
		Int("connections", total).
		Msg("connection attached")
}

func (b *Bus) Detach(connID string) {
	b.mu.Lock()
	delete(b.outboxes, connID)
	b.leaveLocked(connID)
	total := len(b.outboxes)
	b.mu.Unlock()

	log.Debug().
		Str("connId", connID).
		Int("connections", total).
		Msg("connection detached")
}

// Join adds a connection to a room's delivery group. Idempotent; a
// connection belongs to at most one room at a time.
func (b *Bus) Join(connID, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.leaveLocked(connID)
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[string]bool)
	}
	b.rooms[room][connID] = true
	b.member[connID] = room
}

// Leave removes a connection from its room, if any.
func (b *Bus) Leave(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(connID)
}

func (b *Bus) leaveLocked(connID string) {
	room, ok := b.member[connID]
	if !ok {
		return
	}
	delete(b.member, connID)
	if members := b.rooms[room]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(b.rooms, room)
		}
	}
}

// Emit delivers an event to every connection in a room.
func (b *Bus) Emit(room, event string, data any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for connID := range b.rooms[room] {
		b.sendLocked(connID, Event{Event: event, Data: data})
	}
}

// EmitTo delivers an event to one connection regardless of membership.
func (b *Bus) EmitTo(connID, event string, data any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.sendLocked(connID, Event{Event: event, Data: data})
}

func (b *Bus) sendLocked(connID string, event Event) {
	outbox, ok := b.outboxes[connID]
	if !ok {
		return
	}
	if err := outbox.Send(event); err != nil {
		log.Warn().
			Str("connId", connID).
			Str("event", event.Event).
			Msg("outbox full, dropping event")
	}
}

// Deliver hands a batch of deliveries to their destinations in order.
func (b *Bus) Deliver(deliveries []Delivery) {
	for _, d := range deliveries {
		if d.Room != "" {
			b.Emit(d.Room, d.Event, d.Data)
		} else {
			b.EmitTo(d.Conn, d.Event, d.Data)
		}
	}
}
