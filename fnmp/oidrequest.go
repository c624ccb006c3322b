package fnmp

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/xdp"
)

// OidRequest is a control request submitted by the upper layer.
type OidRequest struct {
	Key OidKey

	// InformationBuffer carries input of a set request and receives output of a query.
	InformationBuffer []byte

	BytesWritten int
	BytesRead    int
	BytesNeeded  int

	done chan struct{}
	err  error
}

// NewOidRequest creates an OidRequest.
func NewOidRequest(key OidKey, info []byte) *OidRequest {
	return &OidRequest{
		Key:               key,
		InformationBuffer: info,
		done:              make(chan struct{}),
	}
}

// Done returns a channel that is closed when the request completes.
func (req *OidRequest) Done() <-chan struct{} {
	return req.done
}

// Err returns the completion error.
// It should be called after Done is closed.
func (req *OidRequest) Err() error {
	return req.err
}

// Wait blocks until the request completes, and returns its completion error.
func (req *OidRequest) Wait() error {
	<-req.done
	return req.err
}

func (req *OidRequest) finish(e error) {
	req.err = e
	close(req.done)
}

// OidRequest submits a control request.
// Returns nil on success, xdp.StatusPending if the request matched the OID filter and was pended,
// or the failure. A pended request completes through CompletePendingOid.
func (a *Adapter) OidRequest(req *OidRequest) error {
	a.lock.RLock()
	closed := a.closed
	a.lock.RUnlock()
	if closed {
		e := fmt.Errorf("%w: adapter closed", xdp.StatusInvalidDeviceState)
		req.finish(e)
		return e
	}

	e := a.processOid(req, true)
	if errors.Is(e, xdp.StatusPending) {
		a.logger.Debug("OID pended", zap.Stringer("key", req.Key))
		return xdp.StatusPending
	}
	req.finish(e)
	return e
}

func (a *Adapter) processOid(req *OidRequest, shouldFilter bool) error {
	switch {
	case req.Key.RequestType.isQuery():
		return a.processQuery(req, shouldFilter)
	case req.Key.RequestType == RequestSet:
		return a.processSet(req, shouldFilter)
	}
	return fmt.Errorf("%w: request type %s", xdp.StatusNotSupported, req.Key.RequestType)
}

// filterOid places req in the pending slot if it matches the OID filter.
func (a *Adapter) filterOid(req *OidRequest) (pended bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	for _, key := range a.oidFilter {
		if key != req.Key {
			continue
		}
		if a.pending != nil {
			a.logger.Panic("OID pending slot occupied",
				zap.Stringer("pending", a.pending.Key),
				zap.Stringer("key", req.Key),
			)
		}
		a.pending = req
		return true
	}
	return false
}

func (a *Adapter) setOidFilter(owner *handle, keys []OidKey) error {
	if len(keys) == 0 {
		return fmt.Errorf("%w: empty OID filter", xdp.StatusInvalidArgument)
	}
	for _, key := range keys {
		if key.RequestType != RequestQuery && key.RequestType != RequestSet {
			return fmt.Errorf("%w: OID filter key %s", xdp.StatusInvalidArgument, key)
		}
	}

	a.lock.Lock()
	defer a.lock.Unlock()
	if a.oidFilter != nil {
		return fmt.Errorf("%w: OID filter already installed", xdp.StatusInvalidDeviceState)
	}
	a.oidFilter = append([]OidKey(nil), keys...)
	a.oidFilterOwner = owner
	owner.logger.Info("OID filter installed", zap.Int("keys", len(keys)))
	return nil
}

// clearOidFilter removes the OID filter installed by owner.
// A request pended by that filter is processed normally.
func (a *Adapter) clearOidFilter(owner *handle) {
	a.lock.Lock()
	if a.oidFilterOwner != owner {
		a.lock.Unlock()
		return
	}
	a.oidFilter, a.oidFilterOwner = nil, nil
	req := a.pending
	a.pending = nil
	a.lock.Unlock()

	owner.logger.Info("OID filter cleared")
	if req != nil {
		a.completeOid(req, a.processOid(req, false))
	}
}

// GetPendingOid returns a copy of the information buffer of the pending request.
// Fails with StatusNotFound if no request is pending or key does not match, or with
// xdp.BufferTooShortError if outLen cannot hold the buffer.
func (a *Adapter) GetPendingOid(key OidKey, outLen int) ([]byte, error) {
	a.lock.RLock()
	defer a.lock.RUnlock()
	req := a.pending
	if req == nil || req.Key != key {
		return nil, fmt.Errorf("%w: no pending OID %s", xdp.StatusNotFound, key)
	}
	if outLen < len(req.InformationBuffer) {
		return nil, xdp.BufferTooShortError{Needed: len(req.InformationBuffer)}
	}
	return append([]byte{}, req.InformationBuffer...), nil
}

// CompletePendingOid processes the pending request without the OID filter and completes it.
// Fails with StatusNotFound if no request is pending.
func (a *Adapter) CompletePendingOid() error {
	a.lock.Lock()
	req := a.pending
	a.pending = nil
	a.lock.Unlock()
	if req == nil {
		return fmt.Errorf("%w: no pending OID", xdp.StatusNotFound)
	}
	a.completeOid(req, a.processOid(req, false))
	return nil
}

func (a *Adapter) completeOid(req *OidRequest, e error) {
	a.logger.Debug("OID completed", zap.Stringer("key", req.Key), zap.Error(e))
	req.finish(e)
	a.emitter.Emit(evtOidComplete, req)
}
