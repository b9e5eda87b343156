package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
)

// Service is the owner's profile screen.
type Service interface {
	Get(ctx context.Context, actor access.Actor) (*OwnerDTO, error)
	Update(ctx context.Context, actor access.Actor, input UpdateProfileInput) (*OwnerDTO, error)
}

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Owner, error)
	Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*models.Owner, error)
}

type service struct {
	repo profileRepository
}

// NewService builds the profile service.
func NewService(repo profileRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "owners repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor) (*OwnerDTO, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	owner, err := s.repo.FindByID(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner not found")
	}
	return FromModel(owner), nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, input UpdateProfileInput) (*OwnerDTO, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}

	patch := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.Required("name")
		}
		patch["name"] = name
	}
	if input.CompanyName != nil {
		patch["company_name"] = strings.TrimSpace(*input.CompanyName)
	}
	if input.NotificationsEnabled != nil {
		patch["notifications_enabled"] = *input.NotificationsEnabled
	}
	if input.DefaultView != nil {
		view, err := enums.ParseDefaultView(strings.ToLower(strings.TrimSpace(*input.DefaultView)))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error()).
				WithDetails(map[string]string{"default_view": "must be dashboard or map"})
		}
		patch["default_view"] = view
	}

	owner, err := s.repo.Update(ctx, actor.OwnerID, patch)
	if err != nil {
		return nil, err
	}
	return FromModel(owner), nil
}
