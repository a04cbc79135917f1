// Package mqtt connects the conectsim core to an MQTT broker.
//
// The core publishes retained device state under
// conectsim/core/device/{name}/state whenever a selector moves, announces
// stored exposures under conectsim/core/exposure/{name}, and accepts
// instrument commands on conectsim/command/instrument. A last will on
// conectsim/system/status lets subscribers notice a crashed core.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.InstrumentCommand(), 1, handler)
package mqtt
