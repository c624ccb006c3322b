package fnmp

import (
	"sync"

	"github.com/usnistgov/xdpfn/fndis"
	"github.com/usnistgov/xdpfn/xdp"
)

// RxFlushFlags modifies RX flush behavior.
type RxFlushFlags uint32

// RxFlushFlags bits.
const (
	// RxFlushDpcLevel is accepted for compatibility and has no effect.
	RxFlushDpcLevel RxFlushFlags = 1 << iota
	// RxFlushLowResources inspects frames one at a time with Receive instead of ReceiveBatch.
	RxFlushLowResources
	// RxFlushRssCpu overrides every frame's queue with RxFlushOptions.QueueID.
	RxFlushRssCpu
)

// RxFlushOptions contains RX flush arguments.
type RxFlushOptions struct {
	Flags   RxFlushFlags `json:"flags,omitempty"`
	QueueID uint32       `json:"queueId,omitempty"`
}

func (opts RxFlushOptions) target(frame *xdp.Frame) uint32 {
	if opts.Flags&RxFlushRssCpu != 0 {
		return opts.QueueID
	}
	return frame.QueueID
}

// rxBacklog holds enqueued frames until flush.
type rxBacklog struct {
	lock   sync.Mutex
	frames []xdp.Frame
}

func (b *rxBacklog) add(frame xdp.Frame) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.frames = append(b.frames, frame)
}

func (b *rxBacklog) take() (frames []xdp.Frame) {
	b.lock.Lock()
	defer b.lock.Unlock()
	frames, b.frames = b.frames, nil
	return frames
}

func (b *rxBacklog) len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.frames)
}

// rxJob is a flushed backlog awaiting the poll.
// After enqueue, only the poll touches it.
type rxJob struct {
	frames []xdp.Frame
	pos    int
	opts   RxFlushOptions
	native *Native
}

type jobQueue struct {
	lock sync.Mutex
	jobs []*rxJob
}

func (q *jobQueue) push(job *rxJob) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.jobs = append(q.jobs, job)
}

func (q *jobQueue) head() *rxJob {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.jobs) == 0 {
		return nil
	}
	return q.jobs[0]
}

func (q *jobQueue) pop() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
}

// frameList holds frames indicated to the upper layer.
type frameList struct {
	lock   sync.Mutex
	frames [][]byte
}

func (l *frameList) add(frame []byte) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.frames = append(l.frames, frame)
}

func (l *frameList) take() (frames [][]byte) {
	l.lock.Lock()
	defer l.lock.Unlock()
	frames, l.frames = l.frames, nil
	return frames
}

// flushRx hands frames to the poll and waits until the poll has processed them.
func (a *Adapter) flushRx(frames []xdp.Frame, opts RxFlushOptions, nat *Native) {
	if len(frames) > 0 {
		a.rxJobs.push(&rxJob{frames: frames, opts: opts, native: nat})
	}
	<-a.poll.Request()
}

// pollIteration runs in the bounded-latency context.
func (a *Adapter) pollIteration(data *fndis.PollData) (progress bool) {
	budget := data.Receive.MaxIndicate
	var xd fndis.XDPData

	for budget > 0 {
		job := a.rxJobs.head()
		if job == nil {
			break
		}
		n, absorbed := a.receive(job, budget)
		budget -= n
		data.Receive.Indicated += n
		xd.RxFramesAbsorbed += uint64(absorbed)
		if job.pos == len(job.frames) {
			a.rxJobs.pop()
		}
		progress = progress || n > 0
	}

	if nat := a.nativeDP.Load(); nat != nil {
		consumed, completed, transmitted := nat.pollTx(data.Transmit.MaxComplete)
		data.Transmit.Completed += completed
		xd.TxFramesCompleted += uint64(completed)
		xd.TxFramesTransmitted += uint64(transmitted)
		// captured frames leave the ring without a completion
		progress = progress || consumed > 0 || completed > 0
	}

	fndis.CompletePoll(data, xd)
	return progress
}

// receive processes up to budget frames of a job.
func (a *Adapter) receive(job *rxJob, budget int) (n, absorbed int) {
	for n < budget && job.pos < len(job.frames) {
		frame := &job.frames[job.pos]
		var nq *nativeRxQueue
		if job.native != nil {
			nq = job.native.activeRxQueue(job.opts.target(frame))
		}
		if nq == nil {
			a.indicate(frame)
			job.pos++
			n++
			continue
		}
		produced, nAbsorbed := nq.receive(job, budget-n)
		n += produced
		absorbed += nAbsorbed
	}
	return n, absorbed
}
