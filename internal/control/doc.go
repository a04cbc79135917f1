// Package control runs observations on an instrument.
//
// System holds the observation metadata (observing block, pointing,
// proposal and control) and turns instrument runs into named exposure
// records with a metadata snapshot and header cards. Console serialises
// access to one instrument and its System, so the HTTP API and the MQTT
// command handler can drive the same hardware model concurrently.
// Exposures are persisted through a Repository; SQLiteRepository stores
// them in the exposures table.
package control
