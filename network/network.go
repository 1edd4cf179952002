// Package network provides a dynamic container of nodes supporting
// safe structural edits to a running graph. Edits from the control
// side accumulate against a staged copy of the topology; Commit
// validates it and publishes a consistent snapshot to the execution
// side with a single atomic swap, so the execution side never observes
// a half-edited graph and never blocks on the control side.
package network

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/agilira/go-errors"
	"github.com/rs/xid"

	"pipelined.dev/node"
	"pipelined.dev/node/flow"
)

// Error codes reported to the control side when a commit is rejected.
const (
	ErrCodeUnknownID        = "NODE_NET_UNKNOWN_ID"
	ErrCodeArityMismatch    = "NODE_NET_ARITY_MISMATCH"
	ErrCodeDanglingEdge     = "NODE_NET_DANGLING_EDGE"
	ErrCodeUnconnectedInput = "NODE_NET_UNCONNECTED_INPUT"
	ErrCodeDuplicateInput   = "NODE_NET_DUPLICATE_INPUT"
	ErrCodeCycle            = "NODE_NET_CYCLE"
)

// ID identifies a node within a network.
type ID string

// State of the staged topology.
type State int

const (
	// Editing means the staged topology may be inconsistent mid-edit.
	Editing State = iota
	// Staged means edits are complete and verified.
	Staged
	// Committed means the staged topology is published for execution.
	Committed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Staged:
		return "staged"
	case Committed:
		return "committed"
	}
	return "unknown"
}

// Logger is an interface for network loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

type silentLogger struct{}

func (silentLogger) Debug(...interface{}) {}

func (silentLogger) Info(...interface{}) {}

// port addresses one channel of a node, or of the network boundary
// when the id is empty.
type port struct {
	id      ID
	channel int
}

type edge struct {
	from port
	to   port
}

// Network is a mutable collection of boxed nodes and edges between
// them. Control methods must be called from a single control
// goroutine; Tick and Process belong to the execution side and are
// safe to call concurrently with control methods.
type Network struct {
	inputs  int
	outputs int
	log     Logger

	mu    sync.Mutex
	nodes map[ID]node.Node
	order []ID
	edges []edge
	state State
	tail  ID

	active atomic.Pointer[snapshot]
}

// Option provides a way to set functional parameters to the network.
type Option func(*Network)

// WithLogger sets logger to the network. If this option is not
// provided, silent logger is used.
func WithLogger(l Logger) Option {
	return func(n *Network) {
		n.log = l
	}
}

// New returns an empty network with the given external arities. The
// network itself satisfies the node contract on its execution face;
// until the first commit it emits silence.
func New(inputs, outputs int, options ...Option) *Network {
	n := &Network{
		inputs:  inputs,
		outputs: outputs,
		log:     silentLogger{},
		nodes:   make(map[ID]node.Node),
	}
	for _, option := range options {
		option(n)
	}
	return n
}

func newID() ID {
	return ID(xid.New().String())
}

// Add inserts a node into the staged topology without connecting it.
func (n *Network) Add(nd node.Node) ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.add(nd)
}

func (n *Network) add(nd node.Node) ID {
	id := newID()
	n.nodes[id] = nd
	n.order = append(n.order, id)
	n.state = Editing
	return id
}

// Chain inserts a node and connects it in series to the current tail:
// the first chained node is driven by the network inputs, every
// chained node re-binds the network outputs to itself. Arity
// consistency is verified at commit.
func (n *Network) Chain(nd node.Node) ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.add(nd)
	for ch := 0; ch < nd.Inputs(); ch++ {
		n.edges = append(n.edges, edge{
			from: port{id: n.tail, channel: ch},
			to:   port{id: id, channel: ch},
		})
	}
	// re-bind network outputs from the previous tail to the new one,
	// leaving edges staged through Pipe alone
	if n.tail != "" {
		kept := n.edges[:0]
		for _, e := range n.edges {
			if e.to.id == "" && e.from.id == n.tail {
				continue
			}
			kept = append(kept, e)
		}
		n.edges = kept
	}
	for ch := 0; ch < n.outputs && ch < nd.Outputs(); ch++ {
		n.edges = append(n.edges, edge{
			from: port{id: id, channel: ch},
			to:   port{channel: ch},
		})
	}
	n.tail = id
	return id
}

// Pipe connects a specific output of one node to a specific input of
// another in the staged topology.
func (n *Network) Pipe(from ID, fromChannel int, to ID, toChannel int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = Editing
	n.edges = append(n.edges, edge{
		from: port{id: from, channel: fromChannel},
		to:   port{id: to, channel: toChannel},
	})
}

// PipeInput drives a node input from a network input channel.
func (n *Network) PipeInput(channel int, to ID, toChannel int) {
	n.Pipe("", channel, to, toChannel)
}

// PipeOutput drives a network output channel from a node output.
func (n *Network) PipeOutput(from ID, fromChannel int, channel int) {
	n.Pipe(from, fromChannel, "", channel)
}

// Replace swaps the boxed node at id for a new one with matching
// arity. Edges are kept.
func (n *Network) Replace(id ID, nd node.Node) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	old, ok := n.nodes[id]
	if !ok {
		return errors.New(ErrCodeUnknownID, fmt.Sprintf("replace: unknown node %v", id))
	}
	if old.Inputs() != nd.Inputs() || old.Outputs() != nd.Outputs() {
		return errors.New(ErrCodeArityMismatch, fmt.Sprintf(
			"replace: node %v is %dx%d, replacement is %dx%d",
			id, old.Inputs(), old.Outputs(), nd.Inputs(), nd.Outputs(),
		))
	}
	n.nodes[id] = nd
	n.state = Editing
	return nil
}

// Remove deletes a node from the staged topology. Edges referring to
// it are left in place deliberately: a later commit rejects them as
// dangling, which keeps removal cheap and the failure explicit.
func (n *Network) Remove(id ID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.nodes[id]; !ok {
		return errors.New(ErrCodeUnknownID, fmt.Sprintf("remove: unknown node %v", id))
	}
	delete(n.nodes, id)
	for i, ordered := range n.order {
		if ordered == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	if n.tail == id {
		n.tail = ""
	}
	n.state = Editing
	return nil
}

// Disconnect removes all staged edges touching the given port side of
// a node.
func (n *Network) Disconnect(id ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	kept := n.edges[:0]
	for _, e := range n.edges {
		if e.from.id == id || e.to.id == id {
			continue
		}
		kept = append(kept, e)
	}
	n.edges = kept
	n.state = Editing
}

// State returns the staged topology state.
func (n *Network) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Commit validates the staged topology and publishes it to the
// execution side with a single atomic swap. On validation failure the
// previously active snapshot stays in effect and a coded error is
// returned; a broken graph is never installed. Edits committed before
// a block starts are visible no later than that block.
func (n *Network) Commit() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	snap, err := n.build()
	if err != nil {
		n.log.Debug("commit rejected: ", err)
		return err
	}
	n.state = Staged
	// nodes derive their randomness from committed positions, so the
	// seeding pass runs before the snapshot becomes visible
	snap.seed(node.DefaultSeed)
	n.active.Store(snap)
	n.state = Committed
	n.log.Info("committed ", len(snap.nodes), " nodes, ", len(n.edges), " edges")
	return nil
}

// Inputs returns the network input count.
func (n *Network) Inputs() int { return n.inputs }

// Outputs returns the network output count.
func (n *Network) Outputs() int { return n.outputs }

// Analyze propagates descriptors through the active snapshot.
func (n *Network) Analyze(in flow.Vector) flow.Vector {
	snap := n.active.Load()
	if snap == nil {
		signals := make([]flow.Signal, n.outputs)
		for i := range signals {
			signals[i] = flow.Value(0)
		}
		return in.Emit(signals...)
	}
	return snap.analyze(in, n.outputs)
}

// Latency reports the shared scalar latency of the network outputs,
// derived from analysis of the active snapshot.
func (n *Network) Latency() (float64, bool) {
	return node.LatencyOf(n)
}

// Ping threads the hash through the active snapshot in schedule order.
func (n *Network) Ping(probe bool, hash uint64) uint64 {
	if snap := n.active.Load(); snap != nil {
		return snap.ping(probe, hash)
	}
	return hash
}
