package influxdb

import (
	"os"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// snapshotMeasurement is the measurement name for boiler parameter snapshots.
const snapshotMeasurement = "diematic"

// WriteSnapshot writes a boiler parameter snapshot as a single point.
//
// Every parameter becomes a field of the "diematic" measurement, tagged
// with the local hostname. The write is non-blocking; data is batched
// and sent asynchronously.
//
// Parameters:
//   - fields: Parameter name to decoded value (numeric or string)
//   - at: Timestamp of the poll cycle that produced the snapshot
//
// Example:
//
//	client.WriteSnapshot(map[string]any{
//	    "boiler_temp":  58.5,
//	    "outside_temp": 7.2,
//	}, time.Now())
func (c *Client) WriteSnapshot(fields map[string]any, at time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	point := write.NewPoint(
		snapshotMeasurement,
		map[string]string{
			"host": host,
		},
		fields,
		at,
	)

	c.writeAPI.WritePoint(point)
}
