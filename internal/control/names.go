package control

import (
	"fmt"
	"sync"
)

// DefaultNameTemplate formats image names.
const DefaultNameTemplate = "r%05d.fits"

// NameGenerator yields image names from a counter. It is safe for
// concurrent use.
type NameGenerator struct {
	mu       sync.Mutex
	template string
	next     int
}

// NewNameGenerator returns a generator starting at start. An empty
// template means DefaultNameTemplate; start below 1 means 1.
func NewNameGenerator(template string, start int) *NameGenerator {
	if template == "" {
		template = DefaultNameTemplate
	}
	if start < 1 {
		start = 1
	}
	return &NameGenerator{template: template, next: start}
}

// Next returns the next name and advances the counter.
func (g *NameGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	name := fmt.Sprintf(g.template, g.next)
	g.next++
	return name
}

// Index returns the counter the next name will use.
func (g *NameGenerator) Index() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
