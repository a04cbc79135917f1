// Package monitor turns device state transitions into outside events.
//
// A Bridge subscribes to the Changed signal of every observable device in
// an instrument tree. Each transition fans out to up to four sinks:
//
//   - a retained JSON snapshot on conectsim/core/device/<name>/state (MQTT)
//   - a position point in the device_state measurement (InfluxDB)
//   - a row in the state_history table (SQLite)
//   - a device.state_changed message to WebSocket clients
//
// Every sink is optional. A failing sink is logged and does not stop the
// others or the device transition itself.
package monitor
