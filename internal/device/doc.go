// Package device provides the device tree and the selector family used to
// model an instrument's configurable parts.
//
// A Device has a name, a parent and ordered children. Its configuration is
// a nested map keyed by child name: ConfigInfo reports it and Configure
// applies it, ignoring keys that name no child.
//
// # Selectors
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Carrousel: N slots, one active position                   │
//	│                                                          │
//	│   slot 0      slot 1      slot 2      slot 3             │
//	│  ┌───────┐   ┌───────┐   ┌───────┐   ┌───────┐           │
//	│  │ node  │   │ label │   │ empty │   │ node  │           │
//	│  └───────┘   └───────┘   └───────┘   └───────┘           │
//	│      ▲                                                   │
//	│      └── position: Transform and Current delegate here    │
//	└──────────────────────────────────────────────────────────┘
//
//   - Carrousel: MoveTo, Select and the changed/moved signals
//   - Wheel: a Carrousel that can Turn
//   - Switch: a Carrousel whose active occupant feeds the switch; every
//     MoveTo rebinds that edge
//
// Devices are not safe for concurrent use.
package device
