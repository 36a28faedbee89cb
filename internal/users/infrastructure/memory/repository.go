package memory

import (
	"context"
	"sort"
	"sync"

	users "github.com/buzzn/myBuzzn-backend-sub000/internal/users/domain"
)

// Repository is an in-memory user directory.
type Repository struct {
	mu     sync.RWMutex
	users  map[string]users.User
	groups map[string]users.Group
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{
		users:  make(map[string]users.User),
		groups: make(map[string]users.Group),
	}
}

// PutUser stores a user.
func (r *Repository) PutUser(user users.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

// PutGroup stores a group.
func (r *Repository) PutGroup(group users.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = group
}

// Get loads a user.
func (r *Repository) Get(ctx context.Context, id string) (*users.User, error) {
	_ = ctx
	if id == "" {
		return nil, users.ErrEmptyID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &user, nil
}

// List returns users ordered by id.
func (r *Repository) List(ctx context.Context) ([]users.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]users.User, 0, len(r.users))
	for _, user := range r.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListGroups returns groups ordered by id.
func (r *Repository) ListGroups(ctx context.Context) ([]users.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]users.Group, 0, len(r.groups))
	for _, group := range r.groups {
		result = append(result, group)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
