package pkg

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/metrics"
	"github.com/ecopia-map/ept_index/internal/octree"
)

type BlockRequestState int

const (
	Pending BlockRequestState = iota
	Fetching
	Succeeded
	Failed
)

func (s BlockRequestState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fetching:
		return "fetching"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Failure reasons reported by ErrorString.
const (
	ReasonTransport = "transport"
	ReasonDecode    = "decode"
	ReasonCanceled  = "canceled"
)

type blockJob struct {
	fetch  func(ctx context.Context) ([]byte, error)
	decode func(raw []byte) (*data.Block, error)
	store  func(block *data.Block)
}

// BlockRequest is the fetch of one tile running in the background. It moves from Pending to
// Fetching when created and ends in Succeeded or Failed; Done is closed once it ends.
type BlockRequest struct {
	node   octree.NodeID
	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	state  BlockRequestState
	block  *data.Block
	taken  bool
	reason string
	err    error
	closed bool
}

func newBlockRequest(ctx context.Context, node octree.NodeID, job blockJob) *BlockRequest {
	ctx, cancel := context.WithCancel(ctx)
	r := &BlockRequest{
		node:   node,
		done:   make(chan struct{}),
		cancel: cancel,
		state:  Pending,
	}
	metrics.BlockRequestsInFlight.Inc()
	r.setState(Fetching)
	go r.run(ctx, job)
	return r
}

// newFinishedBlockRequest wraps a block that needs no fetch.
func newFinishedBlockRequest(node octree.NodeID, block *data.Block) *BlockRequest {
	r := &BlockRequest{
		node:   node,
		done:   make(chan struct{}),
		cancel: func() {},
		state:  Succeeded,
		block:  block,
	}
	close(r.done)
	return r
}

func (r *BlockRequest) setState(state BlockRequestState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

func (r *BlockRequest) run(ctx context.Context, job blockJob) {
	defer metrics.BlockRequestsInFlight.Dec()
	defer r.cancel()

	raw, err := job.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.fail(ReasonCanceled, ctx.Err())
			return
		}
		r.fail(ReasonTransport, err)
		return
	}

	block, err := job.decode(raw)
	if err != nil {
		r.fail(ReasonDecode, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || ctx.Err() != nil {
		r.finishLocked(Failed, nil, ReasonCanceled, context.Canceled)
		return
	}
	job.store(block)
	r.finishLocked(Succeeded, block, "", nil)
}

func (r *BlockRequest) fail(reason string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	glog.V(2).Infof("tile request of node %s failed (%s): %v", r.node, reason, err)
	r.finishLocked(Failed, nil, reason, err)
}

func (r *BlockRequest) finishLocked(state BlockRequestState, block *data.Block, reason string, err error) {
	r.state = state
	r.block = block
	r.reason = reason
	r.err = err
	close(r.done)
}

func (r *BlockRequest) Node() octree.NodeID {
	return r.node
}

func (r *BlockRequest) State() BlockRequestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Done is closed once the request reaches Succeeded or Failed.
func (r *BlockRequest) Done() <-chan struct{} {
	return r.done
}

// Finished reports without blocking whether the request has ended.
func (r *BlockRequest) Finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the request ends or ctx is done. It returns the error of ctx only; the
// outcome of the fetch is read with Err and TakeBlock.
func (r *BlockRequest) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TakeBlock hands the decoded block over to the caller. Only the first call after success gets
// it; a nil block from a successful request means the tile had no matching point.
func (r *BlockRequest) TakeBlock() *data.Block {
	if !r.Finished() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken {
		return nil
	}
	r.taken = true
	block := r.block
	r.block = nil
	return block
}

// Err returns the failure of a finished request.
func (r *BlockRequest) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ErrorString describes the failure as "<reason>: <detail>", empty unless the request failed.
func (r *BlockRequest) ErrorString() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		return ""
	}
	return r.reason + ": " + r.err.Error()
}

// Close drops the request. An unfinished fetch is canceled and its result is discarded without
// reaching the tile cache. Close does not wait for the fetch to stop.
func (r *BlockRequest) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}
