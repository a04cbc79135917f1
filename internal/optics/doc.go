// Package optics provides the concrete parts of a fibre-fed spectrograph
// model: the Light token that flows through the chain, the optical
// elements that transform it, and the devices that select between them.
//
// Elements (Optical, Stop, Lamp, Sky, Grating, FiberBundle) are plain
// chain nodes. Devices (Telescope, Cover, Shutter, LampUnit, Detector,
// DAS) also take part in the device tree.
package optics
