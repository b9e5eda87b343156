package feed

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

const maxContentLen = 2000

type PostDTO struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"project_id"`
	Author    string     `json:"author"`
	Role      enums.Role `json:"role"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

func FromModel(p *models.FeedPost) *PostDTO {
	if p == nil {
		return nil
	}
	return &PostDTO{ID: p.ID, ProjectID: p.ProjectID, Author: p.Author, Role: p.Role, Content: p.Content, CreatedAt: p.CreatedAt}
}

type PostInput struct {
	Content   string     `json:"content" validate:"required"`
	ProjectID *uuid.UUID `json:"project_id"`
}

type ListParams struct {
	pagination.Params
	ProjectID *uuid.UUID
}

type ListResult struct {
	Items  []PostDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

// Service is the per-site update feed shared by supervisors and the owner.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Post(ctx context.Context, actor access.Actor, input PostInput) (*PostDTO, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "feed repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.Require(enums.RoleSupervisor, enums.RoleOwner); err != nil {
		return nil, err
	}
	site, err := actor.RequireProject(params.ProjectID)
	if err != nil {
		return nil, err
	}
	cursor, err := repo.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.List(ctx, repo.Filter{
		OwnerID:       actor.OwnerID,
		ProjectScoped: true,
		ProjectID:     &site,
		Limit:         params.Limit,
		Cursor:        cursor,
	})
	if err != nil {
		return nil, err
	}
	items := make([]PostDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &ListResult{Items: items, Cursor: repo.EncodeNext(next)}, nil
}

func (s *service) Post(ctx context.Context, actor access.Actor, input PostInput) (*PostDTO, error) {
	if err := actor.Require(enums.RoleSupervisor, enums.RoleOwner); err != nil {
		return nil, err
	}
	site, err := actor.RequireProject(input.ProjectID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.Required("content")
	}
	if len(content) > maxContentLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content too long")
	}
	post := &models.FeedPost{
		OwnerID:   actor.OwnerID,
		ProjectID: site,
		Author:    actor.Name,
		Role:      actor.Role,
		Content:   content,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}
	return FromModel(post), nil
}
