package labor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

var laborTypes = []enums.LaborType{enums.LaborTypeHelper, enums.LaborTypeMason, enums.LaborTypeCarpenter}

// Service runs the daily attendance roster. Supervisors write, owners read.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Add(ctx context.Context, actor access.Actor, input AddLaborInput) (*EntryDTO, error)
	Toggle(ctx context.Context, actor access.Actor, id uuid.UUID) (*EntryDTO, error)
	Summary(ctx context.Context, actor access.Actor, projectID *uuid.UUID) (*Summary, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
}

type ListParams struct {
	pagination.Params
	ProjectID *uuid.UUID
}

type ListResult struct {
	Items  []EntryDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "labor repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	filter, err := s.siteScope(actor, params.ProjectID)
	if err != nil {
		return nil, err
	}
	filter.Limit = params.Limit
	cursor, err := repo.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	filter.Cursor = cursor

	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: FromModels(rows), Cursor: repo.EncodeNext(next)}, nil
}

func (s *service) Add(ctx context.Context, actor access.Actor, input AddLaborInput) (*EntryDTO, error) {
	if err := actor.Require(enums.RoleSupervisor, enums.RoleOwner); err != nil {
		return nil, err
	}
	projectID, err := actor.RequireProject(input.ProjectID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Required("name")
	}
	kind, err := parseLaborType(input.Type)
	if err != nil {
		return nil, err
	}

	entry := &models.LaborEntry{
		OwnerID:   actor.OwnerID,
		ProjectID: projectID,
		Name:      name,
		Type:      kind,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return FromModel(entry), nil
}

// Toggle flips present/absent for one laborer.
func (s *service) Toggle(ctx context.Context, actor access.Actor, id uuid.UUID) (*EntryDTO, error) {
	if err := actor.Require(enums.RoleSupervisor); err != nil {
		return nil, err
	}
	if err := s.visible(ctx, actor, id); err != nil {
		return nil, err
	}
	entry, err := s.repo.Toggle(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(entry), nil
}

func (s *service) Summary(ctx context.Context, actor access.Actor, projectID *uuid.UUID) (*Summary, error) {
	filter, err := s.siteScope(actor, projectID)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	filter.Where = map[string]any{"present": true}
	present, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Summary{Present: present, Total: total}, nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleSupervisor, enums.RoleOwner); err != nil {
		return err
	}
	if err := s.visible(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, actor.OwnerID, id)
}

func (s *service) siteScope(actor access.Actor, projectID *uuid.UUID) (repo.Filter, error) {
	if err := actor.Require(enums.RoleSupervisor, enums.RoleOwner); err != nil {
		return repo.Filter{}, err
	}
	site, err := actor.RequireProject(projectID)
	if err != nil {
		return repo.Filter{}, err
	}
	return repo.Filter{OwnerID: actor.OwnerID, ProjectScoped: true, ProjectID: &site}, nil
}

func (s *service) visible(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	entry, err := s.repo.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return err
	}
	if !actor.CanSee(&entry.ProjectID) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "labor entry not found")
	}
	return nil
}

func parseLaborType(raw string) (enums.LaborType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return enums.LaborTypeHelper, nil
	}
	for _, candidate := range laborTypes {
		if strings.EqualFold(string(candidate), raw) {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown labor type %q", raw)).
		WithDetails(map[string]any{"type": laborTypes})
}
