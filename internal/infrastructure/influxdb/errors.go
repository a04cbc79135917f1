package influxdb

import "errors"

// Errors returned by the InfluxDB client. Check with errors.Is.
var (
	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates the integration is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
