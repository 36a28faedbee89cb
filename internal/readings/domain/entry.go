package readings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EntryType tags a cached payload.
type EntryType string

const (
	EntryTypeReading        EntryType = "reading"
	EntryTypeDisaggregation EntryType = "disaggregation"
)

// Entry is a decoded cache payload: either a Reading or a Disaggregation.
type Entry interface {
	Type() EntryType
}

// Reading is a meter reading with cumulative energy in raw meter units.
type Reading struct {
	Energy int64
	Power  int64
	// Extra keeps any further meter values (phases, voltages) untouched.
	Extra map[string]json.Number
}

// Type implements Entry.
func (Reading) Type() EntryType { return EntryTypeReading }

// Disaggregation is a per-appliance power estimate in watts.
type Disaggregation struct {
	Appliances map[string]float64
}

// Type implements Entry.
func (Disaggregation) Type() EntryType { return EntryTypeDisaggregation }

// MeterReading is a reading bound to its meter and timestamp.
type MeterReading struct {
	MeterID string
	At      time.Time
	Reading Reading
}

type envelope struct {
	Type   EntryType       `json:"type"`
	Values json.RawMessage `json:"values"`
}

// DecodeEntry decodes a cached {type, values} payload.
func DecodeEntry(raw string) (Entry, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}

	switch env.Type {
	case EntryTypeReading:
		values := map[string]json.Number{}
		dec := json.NewDecoder(bytes.NewReader(env.Values))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
		return ReadingFromValues(values)
	case EntryTypeDisaggregation:
		appliances := map[string]float64{}
		if len(env.Values) > 0 {
			if err := json.Unmarshal(env.Values, &appliances); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
			}
		}
		return Disaggregation{Appliances: appliances}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntryType, env.Type)
	}
}

// EncodeEntry encodes an entry into its cached {type, values} payload.
func EncodeEntry(entry Entry) (string, error) {
	var values any
	switch e := entry.(type) {
	case Reading:
		m := make(map[string]json.Number, len(e.Extra)+2)
		for k, v := range e.Extra {
			m[k] = v
		}
		m["energy"] = json.Number(fmt.Sprintf("%d", e.Energy))
		m["power"] = json.Number(fmt.Sprintf("%d", e.Power))
		values = m
	case Disaggregation:
		values = e.Appliances
	default:
		return "", ErrUnknownEntryType
	}

	data, err := json.Marshal(struct {
		Type   EntryType `json:"type"`
		Values any       `json:"values"`
	}{Type: entry.Type(), Values: values})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadingFromValues builds a Reading from raw meter values; "energy" is required.
func ReadingFromValues(values map[string]json.Number) (Reading, error) {
	energyRaw, ok := values["energy"]
	if !ok {
		return Reading{}, ErrMissingEnergy
	}
	energy, err := numberToInt(energyRaw)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: energy: %v", ErrMalformedEntry, err)
	}

	var power int64
	if powerRaw, ok := values["power"]; ok {
		power, err = numberToInt(powerRaw)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: power: %v", ErrMalformedEntry, err)
		}
	}

	extra := make(map[string]json.Number)
	for k, v := range values {
		if k == "energy" || k == "power" {
			continue
		}
		extra[k] = v
	}
	return Reading{Energy: energy, Power: power, Extra: extra}, nil
}

func numberToInt(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
