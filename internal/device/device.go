package device

import (
	"fmt"

	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
	"github.com/nerrad567/conectsim/internal/signal"
)

// Info is a device's configuration snapshot. Composite devices nest the
// Info of each child under the child's name.
type Info map[string]any

// Device is a named member of the device tree.
type Device interface {
	Name() string
	Membership() *Tree
	ConfigInfo() Info
	Configure(value any) error
}

// Observable is implemented by devices that announce state transitions.
// The signal carries the new position.
type Observable interface {
	Device
	Changed() *signal.Signal[int]
}

// Tree holds a device's place in the hierarchy. Use SetParent to change it.
type Tree struct {
	parent   Device
	children []Device
}

// Parent returns the parent device, or nil for a root.
func (t *Tree) Parent() Device { return t.parent }

// Children returns the children in attachment order.
func (t *Tree) Children() []Device {
	out := make([]Device, len(t.children))
	copy(out, t.children)
	return out
}

// Child returns the first child with the given name.
func (t *Tree) Child(name string) (Device, bool) {
	for _, c := range t.children {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// SetParent moves child under parent. A nil parent detaches the child.
// The child is removed from its previous parent first, so it is never
// listed by two parents.
func SetParent(child, parent Device) error {
	if child == nil {
		return fmt.Errorf("%w: nil child", ErrInvalidValue)
	}
	for p := parent; p != nil; p = p.Membership().parent {
		if p == child {
			return fmt.Errorf("%w: %s under %s", ErrCycle, child.Name(), parent.Name())
		}
	}

	ct := child.Membership()
	if old := ct.parent; old != nil {
		ot := old.Membership()
		for i, c := range ot.children {
			if c == child {
				ot.children = append(ot.children[:i], ot.children[i+1:]...)
				break
			}
		}
	}
	ct.parent = parent
	if parent != nil {
		pt := parent.Membership()
		pt.children = append(pt.children, child)
	}
	return nil
}

// Attach sets parent as the parent of each child, in order.
func Attach(parent Device, children ...Device) error {
	for _, c := range children {
		if err := SetParent(c, parent); err != nil {
			return err
		}
	}
	return nil
}

// Walk calls fn for root and every descendant, parents before children.
func Walk(root Device, fn func(Device) error) error {
	if err := fn(root); err != nil {
		return err
	}
	for _, c := range root.Membership().children {
		if err := Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the first device named name in root's subtree.
func Find(root Device, name string) (Device, bool) {
	var found Device
	_ = Walk(root, func(d Device) error {
		if found == nil && d.Name() == name {
			found = d
		}
		return nil
	})
	return found, found != nil
}

// SetLogger installs logger on the signals of every device under root.
func SetLogger(root Device, logger signal.Logger) {
	_ = Walk(root, func(d Device) error {
		if l, ok := d.(interface{ SetLogger(signal.Logger) }); ok {
			l.SetLogger(logger)
		}
		return nil
	})
}

// Base implements the tree half of Device. Embed it by value.
type Base struct {
	element.Element
	tree Tree
}

// NewBase returns a detached Base.
func NewBase(seq *element.Sequence, name string) Base {
	return Base{Element: element.New(seq, name)}
}

// Membership returns the device's tree links.
func (b *Base) Membership() *Tree { return &b.tree }

// ConfigInfo returns the name plus the Info of every child.
func (b *Base) ConfigInfo() Info {
	info := Info{"name": b.Name()}
	for _, c := range b.tree.children {
		info[c.Name()] = c.ConfigInfo()
	}
	return info
}

// Configure forwards each entry of a map value to the child of the same
// name, in attachment order. Keys matching no child are ignored. The
// first child error stops the walk.
func (b *Base) Configure(value any) error {
	profile, ok := asMap(value)
	if !ok {
		return fmt.Errorf("%w: %s expects a map, got %T", ErrInvalidValue, b.Name(), value)
	}
	for _, c := range b.tree.children {
		v, ok := profile[c.Name()]
		if !ok {
			continue
		}
		if err := c.Configure(v); err != nil {
			return fmt.Errorf("configuring %s: %w", c.Name(), err)
		}
	}
	return nil
}

// Connectable is a device that is also a chain node. Its default
// transform passes tokens through.
type Connectable struct {
	Base
	node.Port
}

// NewConnectable returns a Connectable with the given arities.
func NewConnectable(seq *element.Sequence, name string, inputs, outputs int) Connectable {
	return Connectable{
		Base: NewBase(seq, name),
		Port: node.NewPort(inputs, outputs),
	}
}

// Transform returns tok unchanged.
func (c *Connectable) Transform(tok node.Token) (node.Token, error) {
	return tok, nil
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case Info:
		return v, true
	default:
		return nil, false
	}
}

// IntValue converts integer-like configuration values. Floats are
// accepted only when integral, which covers numbers decoded from JSON.
func IntValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		if float32(int(v)) == v {
			return int(v), true
		}
	case float64:
		if float64(int(v)) == v {
			return int(v), true
		}
	}
	return 0, false
}
