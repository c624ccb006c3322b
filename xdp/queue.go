package xdp

import (
	"fmt"
	"sync/atomic"
)

// QueueState indicates queue lifecycle state.
type QueueState uint32

// QueueState values.
const (
	QueueStateCreated QueueState = iota
	QueueStateActivated
	QueueStateDeleted
)

func (st QueueState) String() string {
	switch st {
	case QueueStateCreated:
		return "created"
	case QueueStateActivated:
		return "activated"
	case QueueStateDeleted:
		return "deleted"
	}
	return "?"
}

// queueState holds QueueState.
// Writes happen under the registration lifecycle lock. Reads may happen anywhere.
type queueState struct {
	v atomic.Uint32
}

func (s *queueState) Load() QueueState {
	return QueueState(s.v.Load())
}

func (s *queueState) Store(st QueueState) {
	s.v.Store(uint32(st))
}

// expect fails with StatusInvalidDeviceState unless current state is one of allowed.
func (s *queueState) expect(op string, allowed ...QueueState) error {
	cur := s.Load()
	for _, st := range allowed {
		if cur == st {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s a %s queue", StatusInvalidDeviceState, op, cur)
}
