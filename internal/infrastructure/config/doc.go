// Package config handles loading and validating conectsim configuration.
//
// This package manages:
//   - Loading the service configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Loading the instrument description (layout + catalogue)
//
// Sensitive values (broker passwords, InfluxDB tokens) should be set via
// environment variables.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	desc, err := config.LoadInstrument(cfg.Instrument.File)
package config
