package influxdb

import (
	"context"
	"errors"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	readings "github.com/buzzn/myBuzzn-backend-sub000/internal/readings/domain"
)

const measurement = "meter_readings"

// Sink mirrors ingested readings into an InfluxDB bucket.
type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewSink connects to InfluxDB and verifies the server is reachable.
func NewSink(ctx context.Context, url, token, org, bucket string) (*Sink, error) {
	if url == "" || org == "" || bucket == "" {
		return nil, errors.New("readings influxdb: url, org and bucket required")
	}
	client := influxdb2.NewClient(url, token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return &Sink{client: client, writeAPI: client.WriteAPIBlocking(org, bucket)}, nil
}

// WriteReadings writes one point per reading, tagged by meter.
func (s *Sink) WriteReadings(ctx context.Context, batch []readings.MeterReading) error {
	if len(batch) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(batch))
	for _, item := range batch {
		points = append(points, write.NewPoint(
			measurement,
			map[string]string{"meter_id": item.MeterID},
			map[string]interface{}{
				"energy": item.Reading.Energy,
				"power":  item.Reading.Power,
			},
			item.At,
		))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
