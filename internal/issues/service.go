package issues

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

const unassignedSite = "Unassigned"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines issue tracking operations.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Create(ctx context.Context, actor access.Actor, input CreateIssueInput) (*IssueDTO, error)
	Resolve(ctx context.Context, actor access.Actor, id uuid.UUID) (*IssueDTO, error)
	OpenCount(ctx context.Context, actor access.Actor, projectID *uuid.UUID) (*OpenCount, error)
}

type ListParams struct {
	pagination.Params
	ProjectID *uuid.UUID
	Status    string
}

type ListResult struct {
	Items  []IssueDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	now    func() time.Time
}

// NewService wires issue dependencies.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "issues repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	filter := repo.ForActor(actor, params.ProjectID)
	filter.Limit = params.Limit
	if params.Status != "" {
		status, err := enums.ParseIssueStatus(strings.ToUpper(params.Status))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Where = map[string]any{"status": status}
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

// Create records an issue and queues issue_reported in the same transaction.
func (s *service) Create(ctx context.Context, actor access.Actor, input CreateIssueInput) (*IssueDTO, error) {
	if err := actor.Require(enums.RoleOwner, enums.RoleSupervisor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.Required("title")
	}
	priority := enums.IssuePriorityMedium
	if raw := strings.TrimSpace(input.Priority); raw != "" {
		parsed, err := enums.ParseIssuePriority(strings.ToUpper(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		priority = parsed
	}

	projectID := input.ProjectID
	if scope, scoped := actor.ProjectScope(); scoped {
		projectID = scope
	}
	siteName := unassignedSite
	if projectID != nil {
		name, err := s.repo.ProjectName(ctx, actor.OwnerID, *projectID)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		siteName = name
	}

	issue := &models.Issue{
		OwnerID:   actor.OwnerID,
		ProjectID: projectID,
		Title:     title,
		Priority:  priority,
		Status:    enums.IssueStatusOpen,
		Reporter:  reporterName(actor),
		SiteName:  siteName,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, issue); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventIssueReported,
			AggregateType: enums.AggregateIssue,
			AggregateID:   issue.ID,
			Actor:         actor.Ref(),
			Data: payloads.IssueReportedEvent{
				IssueID:   issue.ID,
				OwnerID:   issue.OwnerID,
				ProjectID: issue.ProjectID,
				Title:     issue.Title,
				Priority:  string(issue.Priority),
				Reporter:  issue.Reporter,
				SiteName:  issue.SiteName,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record issue")
	}
	return FromModel(issue), nil
}

func (s *service) Resolve(ctx context.Context, actor access.Actor, id uuid.UUID) (*IssueDTO, error) {
	if err := actor.Require(enums.RoleOwner, enums.RoleSupervisor); err != nil {
		return nil, err
	}
	issue, err := s.repo.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(issue.ProjectID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "issue not found")
	}
	if issue.Status == enums.IssueStatusResolved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "issue already resolved")
	}

	at := s.now().UTC()
	moved, err := s.repo.Resolve(ctx, actor.OwnerID, id, at)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "issue already resolved")
	}
	issue.Status = enums.IssueStatusResolved
	issue.ResolvedAt = &at
	return FromModel(issue), nil
}

func (s *service) OpenCount(ctx context.Context, actor access.Actor, projectID *uuid.UUID) (*OpenCount, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	count, err := s.repo.CountOpen(ctx, repo.ForActor(actor, projectID))
	if err != nil {
		return nil, err
	}
	return &OpenCount{Open: count}, nil
}

func reporterName(actor access.Actor) string {
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	switch actor.Role {
	case enums.RoleSupervisor:
		return "Supervisor"
	case enums.RoleStoreKeeper:
		return "Store Keeper"
	default:
		return "Owner"
	}
}
