package instrument

// dot -Tpng path.dot > path.png

import (
	"fmt"
	"io"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/node"
)

const (
	dotFill       = "#99ddc8"
	dotActiveFill = "#f98b8b"
	dotEmptyFill  = "#dddddd"
)

// WriteDot writes a Graphviz digraph of the instrument's light path.
// Selectors are drawn as clusters of their slots; nodes on the active
// trace are red.
func WriteDot(w io.Writer, inst *Instrument) error {
	active := make(map[node.Node]bool)
	for _, n := range inst.Trace() {
		active[n] = true
	}

	d := &dotWriter{w: w, active: active, ids: make(map[node.Node]string)}
	d.printf("digraph %q {\n", inst.Name())
	d.printf("  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]\n")
	d.printf("  node [shape=\"record\" style=\"rounded,filled\"]\n")

	chain := node.Chain(inst.Detector())
	for _, n := range chain {
		d.vertex(n)
	}
	for i := 1; i < len(chain); i++ {
		d.edge(chain[i-1], chain[i])
	}
	d.printf("}\n")
	return d.err
}

type dotWriter struct {
	w      io.Writer
	active map[node.Node]bool
	ids    map[node.Node]string
	err    error
}

func (d *dotWriter) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *dotWriter) id(n node.Node) string {
	if id, ok := d.ids[n]; ok {
		return id
	}
	id := fmt.Sprintf("n%d", len(d.ids))
	d.ids[n] = id
	return id
}

func (d *dotWriter) fill(n node.Node) string {
	if d.active[n] {
		return dotActiveFill
	}
	return dotFill
}

// vertex draws n, or a cluster of slots when n is a selector.
func (d *dotWriter) vertex(n node.Node) {
	sel, ok := n.(interface {
		Slot(int) (device.Slot, error)
		Capacity() int
		Position() int
	})
	if !ok {
		d.printf("  %s [label=%q, fillcolor=%q]\n", d.id(n), node.NameOf(n), d.fill(n))
		return
	}

	d.printf("  subgraph cluster_%s {\n", d.id(n))
	d.printf("    label=%q\n", node.NameOf(n))
	d.printf("    %s [label=%q, shape=\"point\"]\n", d.id(n), "")
	for pos := range sel.Capacity() {
		slot, _ := sel.Slot(pos)
		label := fmt.Sprintf("%d: %s", pos, slot.String())
		fill := dotEmptyFill
		if inner := slot.Node(); inner != nil {
			fill = d.fill(inner)
		}
		style := "rounded,filled"
		if pos == sel.Position() {
			style += ",bold"
		}
		d.printf("    %s_%d [label=%q, style=%q, fillcolor=%q]\n", d.id(n), pos, label, style, fill)
	}
	d.printf("  }\n")
}

func (d *dotWriter) edge(from, to node.Node) {
	color := "black"
	if d.active[node.Resolve(from)] && d.active[node.Resolve(to)] {
		color = "red"
	}
	d.printf("  %s -> %s [color=%q]\n", d.id(from), d.id(to), color)
}

