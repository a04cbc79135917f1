package node

import "fmt"

// Token is the value that flows through a chain. Its concrete type is
// agreed between the nodes of one chain.
type Token any

// Port holds the arity and the links of a node. Embed it by value.
type Port struct {
	inputs   int
	outputs  int
	next     Node
	previous Node
}

// NewPort returns an unlinked Port with the given arities.
func NewPort(inputs, outputs int) Port {
	return Port{inputs: inputs, outputs: outputs}
}

// Links returns the port itself. Embedding Port gives the outer type this
// method, which is what makes it a Node.
func (p *Port) Links() *Port { return p }

// Inputs returns the input arity.
func (p *Port) Inputs() int { return p.inputs }

// Outputs returns the output arity.
func (p *Port) Outputs() int { return p.outputs }

// Next returns the downstream node, or nil.
func (p *Port) Next() Node { return p.next }

// Previous returns the upstream node, or nil.
func (p *Port) Previous() Node { return p.previous }

// Node is a participant in a chain.
type Node interface {
	Links() *Port
	Transform(tok Token) (Token, error)
}

// Source is a node with no input that creates tokens.
type Source interface {
	Node
	Create() (Token, error)
}

// Header is implemented by composite nodes whose input is an inner node.
type Header interface {
	Node
	Head() Node
}

// Container is implemented by selectors. Current returns the node in the
// active slot, or nil when the slot holds none.
type Container interface {
	Node
	Current() Node
}

// Tracer is implemented by nodes that compute their own lineage.
type Tracer interface {
	Node
	Trace() []Node
}

// Named is implemented by nodes with a display name.
type Named interface {
	Name() string
}

// NameOf returns the node's name, or its type when it has none.
func NameOf(n Node) string {
	if n == nil {
		return "<nil>"
	}
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", n)
}

// Names maps nodes to their names.
func Names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = NameOf(n)
	}
	return out
}

// HeadOf returns the node that receives connections made to n.
func HeadOf(n Node) Node {
	for range maxDepth {
		h, ok := n.(Header)
		if !ok {
			return n
		}
		inner := h.Head()
		if inner == nil || inner == n {
			return n
		}
		n = inner
	}
	return n
}

// Resolve follows Container.Current until it reaches a leaf. A container
// whose active slot holds no node resolves to itself.
func Resolve(n Node) Node {
	for range maxDepth {
		c, ok := n.(Container)
		if !ok {
			return n
		}
		cur := c.Current()
		if cur == nil || cur == n {
			return n
		}
		n = cur
	}
	return n
}

// IsSource reports whether n creates tokens.
func IsSource(n Node) bool {
	_, ok := n.(Source)
	return ok && n.Links().inputs == 0
}

// maxDepth bounds link walks. Chains are acyclic, so hitting it means
// a Header or Container refers back to itself through another node.
const maxDepth = 1 << 12
