package fnmp

import (
	"time"
)

const (
	evtPause        = "Pause"
	evtRestart      = "Restart"
	evtSendComplete = "SendComplete"
	evtOidComplete  = "OidComplete"
)

// OnPause registers a callback when the data path pauses.
func (a *Adapter) OnPause(cb func(t time.Time)) (cancel func()) {
	return a.emitter.On(evtPause, cb)
}

// OnRestart registers a callback when the data path restarts.
func (a *Adapter) OnRestart(cb func()) (cancel func()) {
	return a.emitter.On(evtRestart, cb)
}

// OnSendComplete registers a callback when an upper-layer send completes.
func (a *Adapter) OnSendComplete(cb func(frame []byte)) (cancel func()) {
	return a.emitter.On(evtSendComplete, cb)
}

// OnOidComplete registers a callback when an OID request completes.
func (a *Adapter) OnOidComplete(cb func(req *OidRequest)) (cancel func()) {
	return a.emitter.On(evtOidComplete, cb)
}
