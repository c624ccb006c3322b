// Package events provides a simple event emitter.
package events

import (
	"github.com/chuckpreslar/emission"
)

// Emitter is a simple event emitter.
// This is a thin wrapper of emission.Emitter whose On and Once methods return a function that cancels
// the callback registration. Emit delivers synchronously in registration order.
type Emitter struct {
	em *emission.Emitter
}

// NewEmitter creates a simple event emitter.
func NewEmitter() *Emitter {
	em := emission.NewEmitter()
	em.SetMaxListeners(-1)
	return &Emitter{em: em}
}

// On registers a callback when an event occurs.
func (emitter *Emitter) On(event, listener any) (cancel func()) {
	emitter.em.On(event, listener)
	return func() { emitter.em.Off(event, listener) }
}

// Once registers a one-time callback when an event occurs.
func (emitter *Emitter) Once(event, listener any) (cancel func()) {
	emitter.em.Once(event, listener)
	return func() { emitter.em.Off(event, listener) }
}

// Emit invokes callbacks registered for an event.
func (emitter *Emitter) Emit(event any, args ...any) {
	emitter.em.EmitSync(event, args...)
}
