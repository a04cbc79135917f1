// Package instrument assembles a fibre-fed spectrograph from selectors
// and optical elements, and runs exposures through it.
//
// An Instrument is both a device tree, whose ConfigInfo and Configure
// reach every selector, and a single light path from the telescope to
// the detector. Build creates one from a config.InstrumentFile;
// WriteDot renders the path for Graphviz.
package instrument
