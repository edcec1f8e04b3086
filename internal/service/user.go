package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
)

type UserService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *UserService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *UserService) UpdateMe(ctx context.Context, id uuid.UUID, req transport.UpdateMeRequest) (*models.User, error) {
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidf("name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) == 0 {
		return s.Me(ctx, id)
	}

	u, err := s.Repo.UpdateUser(ctx, id, updates)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	return s.Repo.ListUsers(ctx, offset, limit)
}

func (s *UserService) SetRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, invalidf("unknown role %q", role)
	}
	if _, err := s.Repo.GetUser(ctx, id); err != nil {
		return nil, notFound(err, "user")
	}

	u, err := s.Repo.UpdateUser(ctx, id, map[string]any{"role": role})
	if err != nil {
		return nil, err
	}
	emit(ctx, s.Events, events.TopicUsers, id.String(), "user_role_changed", map[string]any{
		"user_id": id.String(),
		"role":    role,
	})
	return u, nil
}
