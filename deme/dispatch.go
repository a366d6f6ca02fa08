package deme

import (
	"github.com/pthm-cable/deme/hardware"
)

// DispatchFunc routes an event raised by src. It is bound to the deme
// that owns the dispatch table.
type DispatchFunc func(d *Deme, src *hardware.Processor, ev hardware.Event)

// RegisterDispatch installs fn for events of the given kind, replacing any
// previous handler.
func (d *Deme) RegisterDispatch(kind hardware.EventKind, fn DispatchFunc) {
	d.dispatch[kind] = fn
}

// Dispatch is the hardware.Dispatcher installed on every processor.
// Events without a registered handler are dropped.
func (d *Deme) Dispatch(src *hardware.Processor, ev hardware.Event) {
	if fn, ok := d.dispatch[ev.Kind]; ok {
		fn(d, src, ev)
	}
}

// DispatchMessage delivers ev from src. A "send" event goes to one random
// Moore neighbour (possibly src itself); anything else is broadcast to the
// four von Neumann neighbours. Knocked-out processors still receive.
func (d *Deme) DispatchMessage(src *hardware.Processor, ev hardware.Event) {
	x := hardware.Truncate(src.Trait(TraitXLoc))
	y := hardware.Truncate(src.Trait(TraitYLoc))
	id := d.Index(x, y)

	if ev.HasProperty(hardware.PropSend) {
		d.cpus[d.GetRandomNeighbor(id)].QueueEvent(ev)
		return
	}
	for _, n := range d.Neighbors(id) {
		d.cpus[n].QueueEvent(ev)
	}
}
