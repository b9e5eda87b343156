package projects

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/geocode"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

// Service defines project operations available to owners.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*ProjectDTO, error)
	Create(ctx context.Context, actor access.Actor, input CreateProjectInput) (*ProjectDTO, error)
	Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateProjectInput) (*ProjectDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
}

// ListParams filters the project list.
type ListParams struct {
	pagination.Params
	Status string
}

// ListResult wraps returned projects and the cursor for the next page.
type ListResult struct {
	Items  []ProjectDTO `json:"items"`
	Cursor string       `json:"cursor"`
}

type service struct {
	repo     Repository
	geocoder geocode.Reverser
	now      func() time.Time
}

// NewService wires project dependencies. The geocoder is optional.
func NewService(repo Repository, geocoder geocode.Reverser) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "projects repository required")
	}
	return &service{repo: repo, geocoder: geocoder, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	query := listParams{OwnerID: actor.OwnerID, Limit: params.Limit}
	if params.Status != "" {
		status, err := enums.ParseProjectStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = status
	}
	cursor, err := repo.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query.Cursor = cursor

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: FromModels(rows), Cursor: repo.EncodeNext(next)}, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*ProjectDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Role.IsWorker() && (actor.ProjectID == nil || *actor.ProjectID != id) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "project not assigned")
	}
	project, err := s.repo.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(project), nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateProjectInput) (*ProjectDTO, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Required("name")
	}
	location := strings.TrimSpace(input.Location)
	if location == "" && input.Latitude != nil && input.Longitude != nil {
		location = geocode.BestEffort(ctx, s.geocoder, *input.Latitude, *input.Longitude)
	}
	if location == "" {
		return nil, pkgerrors.Required("location")
	}
	if input.Budget.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget must not be negative")
	}

	status := enums.ProjectStatusActive
	if raw := strings.TrimSpace(input.Status); raw != "" {
		parsed, err := enums.ParseProjectStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = parsed
	}

	start := input.StartDate
	if start.IsZero() {
		start = types.DateOf(s.now())
	}

	project := &models.Project{
		OwnerID:   actor.OwnerID,
		Name:      name,
		Location:  location,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Budget:    input.Budget.Value,
		StartDate: start.Time,
		Status:    status,
		Progress:  ClampProgress(input.Progress.Value),
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return FromModel(project), nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateProjectInput) (*ProjectDTO, error) {
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
	if input.Location != nil {
		location := strings.TrimSpace(*input.Location)
		if location == "" {
			return nil, pkgerrors.Required("location")
		}
		patch["location"] = location
	}
	if input.Budget.Set {
		if input.Budget.Value.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget must not be negative")
		}
		patch["budget"] = input.Budget.Value
	}
	if input.Status != nil {
		status, err := enums.ParseProjectStatus(strings.TrimSpace(*input.Status))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		patch["status"] = status
	}
	if input.Progress.Set {
		patch["progress"] = ClampProgress(input.Progress.Value)
	}

	project, err := s.repo.Update(ctx, actor.OwnerID, id, patch)
	if err != nil {
		return nil, err
	}
	return FromModel(project), nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, actor.OwnerID, id)
}

// ClampProgress truncates v to a whole percentage between 0 and 100.
func ClampProgress(v decimal.Decimal) int {
	switch {
	case v.LessThan(decimal.Zero):
		return 0
	case v.GreaterThan(decimal.NewFromInt(100)):
		return 100
	default:
		return int(v.IntPart())
	}
}
