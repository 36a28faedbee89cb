package users

import (
	"context"
	"errors"
)

var (
	// ErrEmptyID is returned when a user id is empty.
	ErrEmptyID = errors.New("users: empty id")
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("users: user not found")
)

// User is the slice of a household account the energy pipeline needs.
type User struct {
	ID          string
	Name        string
	MeterID     string
	GroupID     string
	Inhabitants int
	// Baseline is the household's committed annual consumption in kWh.
	Baseline int
}

// HasMeter reports whether the user has a meter assigned.
func (u User) HasMeter() bool { return u.MeterID != "" }

// Group is a local energy community sharing one group meter.
type Group struct {
	ID           string
	Name         string
	GroupMeterID string
}

// Repository reads users and groups.
type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	ListGroups(ctx context.Context) ([]Group, error)
}

// MeterIDs returns the distinct meters of users and groups, users first.
func MeterIDs(list []User, groups []Group) []string {
	seen := make(map[string]struct{}, len(list)+len(groups))
	result := make([]string, 0, len(list)+len(groups))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	for _, user := range list {
		add(user.MeterID)
	}
	for _, group := range groups {
		add(group.GroupMeterID)
	}
	return result
}
