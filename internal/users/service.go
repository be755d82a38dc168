// Package users provides HTTP handlers and business logic for users and their roles.
package users

import (
	"context"
	"sync"

	"github.com/bissquit/userroles/internal/domain"
	"github.com/bissquit/userroles/internal/pkg/ctxlog"
	"github.com/bissquit/userroles/internal/store"
)

// Service applies user and role operations to a freshly loaded collection.
type Service struct {
	store store.Store
	ids   *IDGenerator

	// mu serializes load-mutate-save cycles within this process.
	mu sync.Mutex
}

// NewService creates a new users service.
func NewService(s store.Store) *Service {
	return &Service{
		store: s,
		ids:   NewIDGenerator(),
	}
}

// ListUsers returns the whole collection.
func (s *Service) ListUsers(ctx context.Context) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Load(ctx)
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	user := users.Find(id)
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateUser appends a new user. Client fields override the generated id and
// the empty roles default. Client roles without an id get a generated one.
func (s *Service) CreateUser(ctx context.Context, fields domain.Fields) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(s.ids.Next())
	if err := user.Merge(fields); err != nil {
		return nil, err
	}
	user.AssignMissingRoleIDs(s.ids.Next)

	users = append(users, user)
	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("user created", "user_id", user.ID)
	return &user, nil
}

// DeleteUser removes the user and all of its roles.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	users, removed := users.Remove(id)
	if !removed {
		return ErrUserNotFound
	}

	if err := s.store.Save(ctx, users); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Debug("user deleted", "user_id", id)
	return nil
}

// AddRole appends a new role to the user.
func (s *Service) AddRole(ctx context.Context, userID int64, fields domain.Fields) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	user := users.Find(userID)
	if user == nil {
		return nil, ErrUserNotFound
	}

	role := domain.NewRole(s.ids.Next())
	if err := role.Merge(fields); err != nil {
		return nil, err
	}
	user.Roles = append(user.Roles, role)

	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("role added", "user_id", userID, "role_id", role.ID)
	return &role, nil
}

// UpdateRole merges fields onto an existing role. Fields absent from the
// request keep their stored values.
func (s *Service) UpdateRole(ctx context.Context, userID, roleID int64, fields domain.Fields) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	user := users.Find(userID)
	if user == nil {
		return nil, ErrUserNotFound
	}

	role := user.FindRole(roleID)
	if role == nil {
		return nil, ErrRoleNotFound
	}

	if err := role.Merge(fields); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	updated := *role
	return &updated, nil
}

// DeleteRole removes the role from the user.
func (s *Service) DeleteRole(ctx context.Context, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	user := users.Find(userID)
	if user == nil {
		return ErrUserNotFound
	}

	if !user.RemoveRole(roleID) {
		return ErrRoleNotFound
	}

	if err := s.store.Save(ctx, users); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Debug("role deleted", "user_id", userID, "role_id", roleID)
	return nil
}
