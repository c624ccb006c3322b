package xdp

import (
	"fmt"
)

// InterfaceDispatch is the control dispatch table an interface provides at registration.
// The dispatch value doubles as the interface context: methods are bound to the driver's own state.
//
// Lifecycle calls are made in the blocking context and are serialized per registration.
type InterfaceDispatch interface {
	// CreateRxQueue allocates an interface RX queue.
	// It must call cfg.SetCapabilities before returning successfully.
	// It may fail with StatusUnsupported or StatusResourceExhausted.
	CreateRxQueue(cfg *RxQueueConfigCreate) (InterfaceRxQueue, error)

	// CreateTxQueue allocates an interface TX queue.
	// It must call cfg.SetCapabilities before returning successfully.
	CreateTxQueue(cfg *TxQueueConfigCreate) (InterfaceTxQueue, error)
}

// InterfaceOpener is optionally implemented by InterfaceDispatch.
// OpenInterface is invoked when the platform opens the interface.
type InterfaceOpener interface {
	OpenInterface(cfg InterfaceConfig) error
}

// InterfaceCloser is optionally implemented by InterfaceDispatch.
// CloseInterface is invoked after every queue has been deleted, only if the open succeeded.
type InterfaceCloser interface {
	CloseInterface()
}

// InterfaceConfig is passed to InterfaceOpener.
type InterfaceConfig struct {
	IfIndex    uint32
	APIVersion uint32
}

// InterfaceRxQueue is the interface side of an RX queue.
type InterfaceRxQueue interface {
	// Activate makes the queue ready for the data path.
	// After it returns, the interface may produce frames onto cfg.Ring and call q dispatch methods.
	Activate(q *RxQueue, cfg *RxQueueConfigActivate)

	// Delete releases the queue.
	// After it returns, the interface must not touch the ring or call q dispatch methods.
	Delete()

	// NotifyQueue asks the interface to look at the queue.
	NotifyQueue(flags NotifyFlags)
}

// InterfaceTxQueue is the interface side of a TX queue.
type InterfaceTxQueue interface {
	// Activate makes the queue ready for the data path.
	// After it returns, the interface consumes cfg.FrameRing and produces onto cfg.CompletionRing.
	Activate(q *TxQueue, cfg *TxQueueConfigActivate)

	Delete()

	NotifyQueue(flags NotifyFlags)
}

// RxQueueDispatch is the platform's RX data path dispatch table.
type RxQueueDispatch interface {
	Receive() RxAction
	ReceiveBatch()
	FlushReceive()
}

// TxQueueDispatch is the platform's TX data path dispatch table.
type TxQueueDispatch interface {
	FlushTransmit()
}

var (
	_ RxQueueDispatch = (*RxQueue)(nil)
	_ TxQueueDispatch = (*TxQueue)(nil)
)

// RxCapabilities is declared by the interface while creating an RX queue.
type RxCapabilities struct {
	MaxBufferSize  uint32 `json:"maxBufferSize"`
	MaxFrameSize   uint32 `json:"maxFrameSize"`
	MaxFragments   int    `json:"maxFragments"`
	VirtualAddress bool   `json:"virtualAddress"`
}

// Validate checks the declaration.
func (caps RxCapabilities) Validate() error {
	if caps.MaxFrameSize == 0 || caps.MaxBufferSize == 0 || caps.MaxFragments <= 0 {
		return fmt.Errorf("%w: incomplete RX capabilities %+v", StatusInvalidArgument, caps)
	}
	return nil
}

// RxQueueConfigCreate is passed to InterfaceDispatch.CreateRxQueue.
type RxQueueConfigCreate struct {
	IfIndex  uint32
	QueueID  uint32
	RingSize int
	caps     *RxCapabilities
}

// SetCapabilities declares queue capabilities.
func (cfg *RxQueueConfigCreate) SetCapabilities(caps RxCapabilities) {
	cfg.caps = &caps
}

// Capabilities returns declared capabilities.
func (cfg *RxQueueConfigCreate) Capabilities() (caps RxCapabilities, ok bool) {
	if cfg.caps == nil {
		return RxCapabilities{}, false
	}
	return *cfg.caps, true
}

// RxQueueConfigActivate is passed to InterfaceRxQueue.Activate.
type RxQueueConfigActivate struct {
	Ring         *FrameRing
	Capabilities RxCapabilities
}

// TxCapabilities is declared by the interface while creating a TX queue.
type TxCapabilities struct {
	MaxBufferSize        uint32 `json:"maxBufferSize"`
	MaxFrameSize         uint32 `json:"maxFrameSize"`
	OutOfOrderCompletion bool   `json:"outOfOrderCompletion"`
}

// Validate checks the declaration.
func (caps TxCapabilities) Validate() error {
	if caps.MaxFrameSize == 0 || caps.MaxBufferSize == 0 {
		return fmt.Errorf("%w: incomplete TX capabilities %+v", StatusInvalidArgument, caps)
	}
	return nil
}

// TxQueueConfigCreate is passed to InterfaceDispatch.CreateTxQueue.
type TxQueueConfigCreate struct {
	IfIndex  uint32
	QueueID  uint32
	RingSize int
	caps     *TxCapabilities
}

// SetCapabilities declares queue capabilities.
func (cfg *TxQueueConfigCreate) SetCapabilities(caps TxCapabilities) {
	cfg.caps = &caps
}

// Capabilities returns declared capabilities.
func (cfg *TxQueueConfigCreate) Capabilities() (caps TxCapabilities, ok bool) {
	if cfg.caps == nil {
		return TxCapabilities{}, false
	}
	return *cfg.caps, true
}

// TxQueueConfigActivate is passed to InterfaceTxQueue.Activate.
type TxQueueConfigActivate struct {
	FrameRing      *FrameRing
	CompletionRing *CompletionRing
	Capabilities   TxCapabilities
}
