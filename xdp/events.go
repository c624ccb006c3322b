package xdp

// InterfaceEventKind identifies an interface lifecycle event.
type InterfaceEventKind string

// InterfaceEventKind values.
const (
	InterfaceRegistered   InterfaceEventKind = "registered"
	InterfaceOpened       InterfaceEventKind = "opened"
	InterfaceClosed       InterfaceEventKind = "closed"
	InterfaceDeregistered InterfaceEventKind = "deregistered"
)

// InterfaceEvent describes an interface lifecycle event.
type InterfaceEvent struct {
	IfIndex uint32
	Kind    InterfaceEventKind
}

// QueueEventKind identifies a queue lifecycle event.
type QueueEventKind string

// QueueEventKind values.
const (
	QueueCreated   QueueEventKind = "created"
	QueueActivated QueueEventKind = "activated"
	QueueDeleted   QueueEventKind = "deleted"
)

// QueueEvent describes a queue lifecycle event.
type QueueEvent struct {
	IfIndex   uint32
	QueueID   uint32
	Direction Direction
	Kind      QueueEventKind
}

const (
	evtInterface = "InterfaceEvent"
	evtQueue     = "QueueEvent"
)

// OnInterfaceEvent registers a callback for interface lifecycle events.
// The callback runs while the registration's lifecycle lock is held, so it must not invoke
// lifecycle operations on the same interface.
func (p *Platform) OnInterfaceEvent(cb func(evt InterfaceEvent)) (cancel func()) {
	return p.emitter.On(evtInterface, cb)
}

// OnQueueEvent registers a callback for queue lifecycle events.
// The same restriction as OnInterfaceEvent applies.
func (p *Platform) OnQueueEvent(cb func(evt QueueEvent)) (cancel func()) {
	return p.emitter.On(evtQueue, cb)
}

func (p *Platform) emitInterface(ifIndex uint32, kind InterfaceEventKind) {
	p.emitter.Emit(evtInterface, InterfaceEvent{IfIndex: ifIndex, Kind: kind})
}

func (p *Platform) emitQueue(ifIndex, queueID uint32, dir Direction, kind QueueEventKind) {
	p.emitter.Emit(evtQueue, QueueEvent{IfIndex: ifIndex, QueueID: queueID, Direction: dir, Kind: kind})
}
