package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
	"github.com/angelmondragon/siteboss-backend/pkg/realtime"
)

const unassignedSite = "Unassigned"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the owner's notification inbox and the supervisor's
// material request.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Count(ctx context.Context, actor access.Actor) (*CountResult, error)
	RequestMaterial(ctx context.Context, actor access.Actor, input MaterialRequestInput) (*NotificationDTO, error)
	Dismiss(ctx context.Context, actor access.Actor, id uuid.UUID) error
	Inbox
}

// Inbox gives workflows transactional access to single notifications.
type Inbox interface {
	GetTx(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) (*models.Notification, error)
	RemoveTx(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) error
}

// ListParams configures pagination for notifications.
type ListParams struct {
	pagination.Params
	Type string
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []NotificationDTO `json:"items"`
	Cursor string            `json:"cursor"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	live   realtime.Publisher
	logg   *logger.Logger
}

// NewService wires notifications dependencies. live may be nil when realtime
// is disabled.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, live realtime.Publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, live: live, logg: logg}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	filter := repo.Filter{OwnerID: actor.OwnerID, Limit: params.Limit}
	if params.Type != "" {
		kind, err := enums.ParseNotificationType(strings.ToUpper(params.Type))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		filter.Where = map[string]any{"type": kind}
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

func (s *service) Count(ctx context.Context, actor access.Actor) (*CountResult, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	count, err := s.repo.Count(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	return &CountResult{Count: count}, nil
}

// RequestMaterial raises an URGENT approval request on the owner's inbox.
func (s *service) RequestMaterial(ctx context.Context, actor access.Actor, input MaterialRequestInput) (*NotificationDTO, error) {
	if err := actor.Require(enums.RoleSupervisor); err != nil {
		return nil, err
	}
	item := strings.TrimSpace(input.Item)
	if item == "" {
		return nil, pkgerrors.Required("item")
	}
	if !input.Quantity.Set {
		return nil, pkgerrors.Required("quantity")
	}
	if input.Quantity.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	qty := input.Quantity.Value.String()

	site := unassignedSite
	if actor.ProjectID != nil {
		name, err := s.repo.ProjectName(ctx, actor.OwnerID, *actor.ProjectID)
		if err != nil {
			return nil, err
		}
		if name != "" {
			site = name
		}
	}

	action := approveOrderAction
	notification := &models.Notification{
		OwnerID:     actor.OwnerID,
		ProjectID:   actor.ProjectID,
		Type:        enums.NotificationTypeUrgent,
		Title:       MaterialRequestTitle,
		Message:     fmt.Sprintf("%s (%s) requested %s units of %s.", actor.Name, site, qty, item),
		Action:      &action,
		Item:        &item,
		RequestedBy: actor.Name,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, notification); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMaterialRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   notification.ID,
			Actor:         actor.Ref(),
			Data: payloads.MaterialRequestedEvent{
				NotificationID: notification.ID,
				OwnerID:        notification.OwnerID,
				ProjectID:      notification.ProjectID,
				Item:           item,
				Quantity:       qty,
				RequestedBy:    actor.Name,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record material request")
	}

	dto := FromModel(notification)
	realtime.Announce(ctx, s.live, s.logg, actor.OwnerID, realtime.TableNotifications, dto)
	return dto, nil
}

func (s *service) Dismiss(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, actor.OwnerID, id)
}

func (s *service) GetTx(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) (*models.Notification, error) {
	return s.repo.WithTx(tx).Get(ctx, ownerID, id)
}

func (s *service) RemoveTx(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) error {
	return s.repo.WithTx(tx).Delete(ctx, ownerID, id)
}
