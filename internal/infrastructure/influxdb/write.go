package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the core.
const (
	MeasurementDevice   = "device_state"
	MeasurementExposure = "exposure"
)

// WriteDeviceMetric records a numeric device reading, typically a
// selector position.
//
//	client.WriteDeviceMetric("wheel", "position", 2)
func (c *Client) WriteDeviceMetric(device, measurement string, value float64) {
	c.writePoint(devicePoint(device, measurement, value, time.Now()))
}

// WriteExposure records the summary of a finished exposure.
func (c *Client) WriteExposure(e ExposureMetric) {
	c.writePoint(exposurePoint(e, time.Now()))
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.writePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

// WritePointWithTime writes a custom point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	c.writePoint(write.NewPoint(measurement, tags, fields, ts))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

// ExposureMetric is the per-image summary sent to InfluxDB.
type ExposureMetric struct {
	Name       string
	Instrument string
	Exptime    float64
	Total      float64
	Saturated  bool
}

func devicePoint(device, measurement string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementDevice,
		map[string]string{"device": device, "measurement": measurement},
		map[string]any{"value": value},
		ts)
}

func exposurePoint(e ExposureMetric, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementExposure,
		map[string]string{"instrument": e.Instrument},
		map[string]any{
			"name":      e.Name,
			"exptime":   e.Exptime,
			"total":     e.Total,
			"saturated": e.Saturated,
		},
		ts)
}
