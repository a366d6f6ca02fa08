package hardware

import (
	"fmt"

	"github.com/pthm-cable/deme/program"
)

// Event properties.
const (
	PropSend      = "send"      // Deliver to a single recipient
	PropBroadcast = "broadcast" // Deliver to every neighbour
)

// MessageEvent is the name of the inter-processor message event kind.
const MessageEvent = "Message"

// Memory is a sparse register file. Reads of unset registers yield 0.
type Memory map[int]float64

// Clone returns an independent copy.
func (m Memory) Clone() Memory {
	out := make(Memory, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EventKind identifies an event type within an EventLib.
type EventKind int

// Event is a signal queued on a processor.
type Event struct {
	Kind       EventKind
	Affinity   program.Affinity
	Msg        Memory
	Properties map[string]bool
}

// HasProperty reports whether the event carries prop.
func (e Event) HasProperty(prop string) bool {
	return e.Properties[prop]
}

// EventHandler consumes an event on the processor it was queued on.
type EventHandler func(p *Processor, ev Event)

// EventDef describes one event kind.
type EventDef struct {
	Name        string
	Handler     EventHandler
	Description string
}

// EventLib is an ordered table of event kinds.
type EventLib struct {
	defs   []EventDef
	byName map[string]EventKind
}

// NewEventLib creates an empty event library.
func NewEventLib() *EventLib {
	return &EventLib{byName: make(map[string]EventKind)}
}

// DefaultEventLib returns a library holding the Message event, whose handler
// spawns a thread on the function best bound to the message affinity with
// the message contents as input memory.
func DefaultEventLib() *EventLib {
	l := NewEventLib()
	l.Add(MessageEvent, HandleMessage, "Inter-processor message")
	return l
}

// HandleMessage is the Message event handler.
func HandleMessage(p *Processor, ev Event) {
	p.SpawnByAffinity(ev.Affinity, ev.Msg)
}

// Add registers an event kind. Registering a name twice panics.
func (l *EventLib) Add(name string, handler EventHandler, desc string) EventKind {
	if _, dup := l.byName[name]; dup {
		panic(fmt.Sprintf("hardware: event %q already registered", name))
	}
	kind := EventKind(len(l.defs))
	l.defs = append(l.defs, EventDef{Name: name, Handler: handler, Description: desc})
	l.byName[name] = kind
	return kind
}

// Kind returns the kind registered under name.
func (l *EventLib) Kind(name string) (EventKind, bool) {
	k, ok := l.byName[name]
	return k, ok
}

// Name returns the name of kind, or "?" for unknown kinds.
func (l *EventLib) Name(kind EventKind) string {
	if int(kind) < 0 || int(kind) >= len(l.defs) {
		return "?"
	}
	return l.defs[kind].Name
}

// Handler returns the handler of kind, or nil for unknown kinds.
func (l *EventLib) Handler(kind EventKind) EventHandler {
	if int(kind) < 0 || int(kind) >= len(l.defs) {
		return nil
	}
	return l.defs[kind].Handler
}

// Size returns the number of registered event kinds.
func (l *EventLib) Size() int {
	return len(l.defs)
}
