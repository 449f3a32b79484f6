package audio

import "slices"

// Node is anything that can be wired into the graph
type Node interface {
	base() *node
}

// node holds the wiring shared by every graph node.
// Outputs are cached per render quantum so a node feeding two inputs is
// only rendered once.
type node struct {
	ctx     *Context
	inputs  []Node
	outputs []Node
	render  func(frame int64, out []float64)

	cached  bool
	frame   int64
	cache   []float64
	scratch []float64
}

func (n *node) base() *node {
	return n
}

func newNode(ctx *Context, render func(frame int64, out []float64)) node {
	return node{
		ctx:     ctx,
		render:  render,
		cache:   make([]float64, 0, RenderQuantum),
		scratch: make([]float64, RenderQuantum),
	}
}

// Connect routes this node's output into dst
func (n *node) Connect(dst Node) {
	if dst == nil {
		return
	}
	d := dst.base()
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if slices.Contains(n.outputs, dst) {
		return
	}
	n.outputs = append(n.outputs, dst)
	d.inputs = append(d.inputs, n)
}

// Disconnect removes every outgoing connection
func (n *node) Disconnect() {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	for _, out := range n.outputs {
		d := out.base()
		d.inputs = slices.DeleteFunc(d.inputs, func(in Node) bool { return in.base() == n })
	}
	n.outputs = nil
}

func (n *node) pull(frame int64, out []float64) {
	if n.cached && n.frame == frame && len(n.cache) == len(out) {
		copy(out, n.cache)
		return
	}
	n.render(frame, out)
	n.cache = append(n.cache[:0], out...)
	n.frame = frame
	n.cached = true
}

// mixInputs sums every input into out
func (n *node) mixInputs(frame int64, out []float64) {
	clear(out)
	tmp := n.scratch[:len(out)]
	for _, in := range n.inputs {
		in.base().pull(frame, tmp)
		for i, v := range tmp {
			out[i] += v
		}
	}
}

// Gain scales the sum of its inputs
type Gain struct {
	node
	Gain *Param
	buf  []float64
}

// NewGain creates a gain stage with an initial gain value
func (c *Context) NewGain(gain float64) *Gain {
	g := &Gain{
		Gain: newParam(c, gain),
		buf:  make([]float64, RenderQuantum),
	}
	g.node = newNode(c, g.process)
	return g
}

func (g *Gain) process(frame int64, out []float64) {
	g.mixInputs(frame, out)
	gain := g.buf[:len(out)]
	g.Gain.fill(frame, gain)
	for i := range out {
		out[i] *= gain[i]
	}
}
