// Package influxdb writes instrument telemetry to InfluxDB v2.
//
// Two measurements are produced: device_state, one point per selector
// transition tagged with the device name, and exposure, one point per
// stored image. Writes are batched (batch_size, flush_interval in
// config.yaml) and never block the caller.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDeviceMetric("wheel", "position", 2)
package influxdb
