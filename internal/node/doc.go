// Package node implements the port-node protocol that links the parts of
// an instrument into a directed chain.
//
// Every node embeds a Port: an input arity, an output arity (each 0 or 1),
// and links to the next and previous node. Tokens are pushed downstream
// with Receive; lineage is recovered upstream with Trace; Visit performs a
// full source-to-sink pulse.
//
//	┌────────┐ next  ┌───────────┐ next  ┌──────────┐ next  ┌──────────┐
//	│ Source │──────▶│ Node      │──────▶│ Selector │──────▶│ Sink     │
//	│ (0, 1) │◀──────│ (1, 1)    │◀──────│ (1, 1)   │◀──────│ (1, 0)   │
//	└────────┘ prev  └───────────┘ prev  └────┬─────┘ prev  └──────────┘
//	                                          │ Current()
//	                                          ▼
//	                                     active slot
//
// # Capabilities
//
// Beyond the Node interface, a node may implement:
//
//   - Source: creates a fresh token; input arity 0
//   - Header: redirects incoming connections to an inner node
//   - Container: delegates identity to its active slot
//   - Tracer: replaces the default upstream trace walk
//
// Nodes are not safe for concurrent use. Callers that share a chain
// between goroutines must serialise access.
package node
