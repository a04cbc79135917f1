// Package api implements the HTTP REST API and WebSocket server for conectsim.
//
// This package provides:
//   - REST endpoints to inspect and configure the instrument and its devices
//   - Exposure endpoints that take images and list stored ones
//   - WebSocket hub for real-time device state broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// Every call into the instrument goes through control.Console, which
// serializes access to the single-threaded device graph. State changes are
// pushed to the hub by the monitor bridge; the API only serves clients.
//
// # Errors
//
// Failures use the envelope {"status", "code", "message"}. Position,
// value and arity errors map to 400; unknown devices, slots, profiles and
// exposures map to 404.
package api
