package node

import "fmt"

// Compatible checks that from's output can feed to's input.
func Compatible(from, to Node) error {
	fp, tp := from.Links(), to.Links()
	if fp.outputs != tp.inputs {
		return &ArityError{
			From:    NameOf(from),
			To:      NameOf(to),
			Outputs: fp.outputs,
			Inputs:  tp.inputs,
		}
	}
	return nil
}

// Connect makes to (or its head) the downstream of from.
//
// On an arity mismatch neither node changes. A node has at most one
// upstream and one downstream: an existing edge on either end is removed
// first.
func Connect(from, to Node) error {
	if err := Compatible(from, to); err != nil {
		return err
	}
	head := HeadOf(to)
	if head == from || reaches(head, from) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, NameOf(from), NameOf(to))
	}

	fp, hp := from.Links(), head.Links()
	if old := fp.next; old != nil && old != head && old.Links().previous == from {
		old.Links().previous = nil
	}
	if old := hp.previous; old != nil && old != from && old.Links().next == head {
		old.Links().next = nil
	}
	fp.next = head
	hp.previous = from
	return nil
}

// Unlink removes from's outgoing edge.
func Unlink(from Node) {
	fp := from.Links()
	if fp.next == nil {
		return
	}
	if np := fp.next.Links(); np.previous == from {
		np.previous = nil
	}
	fp.next = nil
}

// reaches reports whether target is downstream of n.
func reaches(n, target Node) bool {
	for i := 0; n != nil && i < maxDepth; i++ {
		if n == target {
			return true
		}
		n = n.Links().next
	}
	return false
}

// Receive transforms tok at n and pushes the result downstream until the
// chain ends. It returns the last transformed value.
func Receive(n Node, tok Token) (Token, error) {
	for n != nil {
		out, err := n.Transform(tok)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", NameOf(n), err)
		}
		next := n.Links().next
		if next == nil {
			return out, nil
		}
		n, tok = next, out
	}
	return tok, nil
}

// Fire creates a token at src and pushes it downstream.
func Fire(src Source) (Token, error) {
	tok, err := src.Create()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameOf(src), err)
	}
	if next := src.Links().next; next != nil {
		return Receive(next, tok)
	}
	return tok, nil
}

// Root walks upstream from n to the first node without a previous link.
func Root(n Node) Node {
	for range maxDepth {
		prev := n.Links().previous
		if prev == nil {
			return n
		}
		n = prev
	}
	return n
}

// Chain returns the raw nodes from the root to n, in flow order.
func Chain(n Node) []Node {
	var rev []Node
	for i := 0; n != nil && i < maxDepth; i++ {
		rev = append(rev, n)
		n = n.Links().previous
	}
	out := make([]Node, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

// Trace returns the lineage of n from the nearest upstream Source, with
// every container resolved to its active leaf. It never includes nodes
// upstream of a Source.
func Trace(n Node) []Node {
	if t, ok := n.(Tracer); ok {
		return t.Trace()
	}
	cur := Resolve(n)
	if IsSource(cur) {
		return []Node{cur}
	}
	prev := n.Links().previous
	if prev == nil {
		return []Node{cur}
	}
	return append(Trace(prev), cur)
}

// Visit runs one pulse through the chain containing n: the root creates a
// token and every node downstream of it transforms it in turn.
func Visit(n Node) (Token, error) {
	root := Root(n)
	src, ok := Resolve(root).(Source)
	if !ok || src.Links().inputs != 0 {
		return nil, fmt.Errorf("%w: root is %s", ErrNoSource, NameOf(root))
	}
	tok, err := src.Create()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameOf(src), err)
	}
	if next := root.Links().next; next != nil {
		return Receive(next, tok)
	}
	return tok, nil
}
