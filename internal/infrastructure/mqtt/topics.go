package mqtt

import "fmt"

// Topic prefixes for the conectsim MQTT hierarchy.
const (
	// TopicPrefix is the root of every conectsim topic.
	TopicPrefix = "conectsim"

	// TopicPrefixCore is the base for state and events published by the core.
	TopicPrefixCore = "conectsim/core"

	// TopicPrefixCommand is the base for commands addressed to the core.
	TopicPrefixCommand = "conectsim/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "conectsim/system"
)

// Topics builds conectsim MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.CoreDeviceState("wheel")
//	// Returns: "conectsim/core/device/wheel/state"
type Topics struct{}

// CoreDeviceState returns the retained state topic of a device.
//
// Example: conectsim/core/device/wheel/state
func (Topics) CoreDeviceState(device string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefixCore, device)
}

// CoreEvent returns the topic for core events.
//
// Example: conectsim/core/event/exposure_completed
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// CoreExposure returns the topic announcing a stored exposure.
//
// Example: conectsim/core/exposure/r00001.fits
func (Topics) CoreExposure(name string) string {
	return fmt.Sprintf("%s/exposure/%s", TopicPrefixCore, name)
}

// Command returns the command topic for a target.
//
// Example: conectsim/command/instrument
func (Topics) Command(target string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixCommand, target)
}

// InstrumentCommand returns the topic the instrument command handler listens on.
func (t Topics) InstrumentCommand() string {
	return t.Command("instrument")
}

// SystemStatus returns the system status topic (online/offline and LWT).
//
// Example: conectsim/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllCoreDeviceStates matches every device state topic.
//
// Pattern: conectsim/core/device/+/state
func (Topics) AllCoreDeviceStates() string {
	return TopicPrefixCore + "/device/+/state"
}

// AllCoreEvents matches every core event topic.
//
// Pattern: conectsim/core/event/+
func (Topics) AllCoreEvents() string {
	return TopicPrefixCore + "/event/+"
}

// AllCommands matches every command topic.
//
// Pattern: conectsim/command/#
func (Topics) AllCommands() string {
	return TopicPrefixCommand + "/#"
}

// AllTopics matches all conectsim traffic.
//
// Pattern: conectsim/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
