package readings

import "errors"

var (
	// ErrInvalidKey is returned when a key does not follow the reading key format.
	ErrInvalidKey = errors.New("readings: invalid key")
	// ErrMalformedEntry is returned when a cached payload is not valid JSON.
	ErrMalformedEntry = errors.New("readings: malformed entry")
	// ErrUnknownEntryType is returned when a cached payload carries an unknown type tag.
	ErrUnknownEntryType = errors.New("readings: unknown entry type")
	// ErrMissingEnergy is returned when a reading payload has no energy value.
	ErrMissingEnergy = errors.New("readings: reading without energy")
)
