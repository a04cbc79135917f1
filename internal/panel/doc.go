// Package panel serves the instrument console page.
//
// The page is a single HTML file with a small script that loads the
// instrument configuration from the REST API, subscribes to
// device.state_changed over the WebSocket and redraws the light path as
// devices move. It is embedded with go:embed so the binary has no runtime
// asset dependency; Handler can serve a directory instead while the page
// is being edited.
package panel
