package workers

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
	"github.com/angelmondragon/siteboss-backend/pkg/security"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

// Service defines the owner's staff directory operations.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*WorkerDTO, error)
	Create(ctx context.Context, actor access.Actor, input CreateWorkerInput) (*IssuedWorker, error)
	Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateWorkerInput) (*WorkerDTO, error)
	RegenerateCode(ctx context.Context, actor access.Actor, id uuid.UUID) (*IssuedWorker, error)
	Revoke(ctx context.Context, actor access.Actor, id uuid.UUID) (*WorkerDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
}

// ListParams filters the staff directory.
type ListParams struct {
	pagination.Params
	Query     string
	Role      string
	ProjectID *uuid.UUID
}

type ListResult struct {
	Items  []WorkerDTO `json:"items"`
	Cursor string      `json:"cursor"`
}

// SessionRevoker ends the sessions a user already holds.
type SessionRevoker interface {
	RevokeSubject(ctx context.Context, subject string) error
}

// Options tunes access code issuance. Sessions is optional; without it
// revoked workers keep their tokens until they expire.
type Options struct {
	Password    config.PasswordConfig
	AccessCodes bool
	Sessions    SessionRevoker
}

type service struct {
	repo Repository
	opts Options
}

// NewService wires worker dependencies.
func NewService(repo Repository, opts Options) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "workers repository required")
	}
	return &service{repo: repo, opts: opts}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	filter := repo.Filter{OwnerID: actor.OwnerID, Limit: params.Limit}
	if q := strings.TrimSpace(params.Query); q != "" {
		filter.Clauses = append(filter.Clauses, repo.ContainsFold("name", q))
	}
	if params.Role != "" {
		role, err := parseWorkerRole(params.Role)
		if err != nil {
			return nil, err
		}
		filter.Where = map[string]any{"role": role}
	}
	if params.ProjectID != nil {
		filter.ProjectScoped = true
		filter.ProjectID = params.ProjectID
	}
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

func (s *service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*WorkerDTO, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	worker, err := s.repo.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(worker), nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateWorkerInput) (*IssuedWorker, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Required("name")
	}
	mobile := types.NormalizeMobile(input.Mobile)
	if mobile == "" {
		return nil, pkgerrors.Required("mobile")
	}
	role, err := parseWorkerRole(input.Role)
	if err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, actor.OwnerID, input.ProjectID); err != nil {
		return nil, err
	}

	taken, err := s.repo.MobileTaken(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "mobile number already registered").
			WithDetails(map[string]string{"mobile": "already registered"})
	}

	code, hash, err := s.issueCode()
	if err != nil {
		return nil, err
	}
	worker := &models.Worker{
		OwnerID:        actor.OwnerID,
		ProjectID:      input.ProjectID,
		Name:           name,
		Mobile:         mobile,
		Role:           role,
		Status:         enums.WorkerStatusActive,
		AccessCodeHash: hash,
	}
	if err := s.repo.Create(ctx, worker); err != nil {
		return nil, err
	}
	return &IssuedWorker{Worker: *FromModel(worker), AccessCode: code}, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateWorkerInput) (*WorkerDTO, error) {
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
	if input.ProjectID != nil {
		if err := s.checkProject(ctx, actor.OwnerID, input.ProjectID); err != nil {
			return nil, err
		}
		patch["project_id"] = *input.ProjectID
	}
	worker, err := s.repo.Update(ctx, actor.OwnerID, id, patch)
	if err != nil {
		return nil, err
	}
	return FromModel(worker), nil
}

// RegenerateCode issues a new access code and reactivates the worker.
func (s *service) RegenerateCode(ctx context.Context, actor access.Actor, id uuid.UUID) (*IssuedWorker, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	if !s.opts.AccessCodes {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "access codes are disabled")
	}
	code, hash, err := s.issueCode()
	if err != nil {
		return nil, err
	}
	worker, err := s.repo.Update(ctx, actor.OwnerID, id, map[string]any{
		"access_code_hash": *hash,
		"status":           enums.WorkerStatusActive,
	})
	if err != nil {
		return nil, err
	}
	if err := s.endSessions(ctx, id); err != nil {
		return nil, err
	}
	return &IssuedWorker{Worker: *FromModel(worker), AccessCode: code}, nil
}

// Revoke deactivates the worker, clears their access code and signs them
// out everywhere.
func (s *service) Revoke(ctx context.Context, actor access.Actor, id uuid.UUID) (*WorkerDTO, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	worker, err := s.repo.Update(ctx, actor.OwnerID, id, map[string]any{
		"access_code_hash": nil,
		"status":           enums.WorkerStatusInactive,
	})
	if err != nil {
		return nil, err
	}
	if err := s.endSessions(ctx, id); err != nil {
		return nil, err
	}
	return FromModel(worker), nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.OwnerID, id); err != nil {
		return err
	}
	return s.endSessions(ctx, id)
}

// endSessions runs after the row change so a login racing it is refused
// by the worker's new status.
func (s *service) endSessions(ctx context.Context, id uuid.UUID) error {
	if s.opts.Sessions == nil {
		return nil
	}
	if err := s.opts.Sessions.RevokeSubject(ctx, id.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "end worker sessions")
	}
	return nil
}

func (s *service) issueCode() (string, *string, error) {
	if !s.opts.AccessCodes {
		return "", nil, nil
	}
	code, err := security.GenerateAccessCode()
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate access code")
	}
	hash, err := security.HashAccessCode(code, s.opts.Password)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash access code")
	}
	return code, &hash, nil
}

func (s *service) checkProject(ctx context.Context, ownerID uuid.UUID, projectID *uuid.UUID) error {
	if projectID == nil {
		return nil
	}
	owned, err := s.repo.ProjectOwned(ctx, ownerID, *projectID)
	if err != nil {
		return err
	}
	if !owned {
		return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
	}
	return nil
}

func parseWorkerRole(raw string) (enums.Role, error) {
	role, err := enums.ParseRole(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil || !role.IsWorker() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "role must be SUPERVISOR or STORE_KEEPER").
			WithDetails(map[string]string{"role": "invalid"})
	}
	return role, nil
}
