package orders

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/inventory"
	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

var leadingIntRe = regexp.MustCompile(`^\s*[+-]?\d+`)

// ErrAlreadyDelivered is returned when a delivered order would be delivered
// again or cancelled. Its stock is already booked.
var ErrAlreadyDelivered = pkgerrors.New(pkgerrors.CodeStateConflict, "order already delivered")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order operations for owners and store keepers.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Deliver(ctx context.Context, actor access.Actor, id uuid.UUID) (*Delivery, error)
	Placer
}

// Placer writes orders inside a caller's transaction.
type Placer interface {
	PlaceTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	CancelTx(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) error
}

type ListParams struct {
	pagination.Params
	ProjectID *uuid.UUID
	Status    string
}

type ListResult struct {
	Items  []OrderDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	stock  inventory.Stocker
	now    func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, stock inventory.Stocker) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory stocker required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, stock: stock, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.Require(enums.RoleOwner, enums.RoleStoreKeeper); err != nil {
		return nil, err
	}
	filter := repo.ForActor(actor, params.ProjectID)
	filter.Limit = params.Limit
	if params.Status != "" {
		status, err := enums.ParseOrderStatus(strings.ToUpper(params.Status))
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

// Deliver marks the order DELIVERED and books the received quantity into
// inventory in one transaction.
func (s *service) Deliver(ctx context.Context, actor access.Actor, id uuid.UUID) (*Delivery, error) {
	if err := actor.Require(enums.RoleOwner, enums.RoleStoreKeeper); err != nil {
		return nil, err
	}

	var result Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		order, err := r.Get(ctx, actor.OwnerID, id)
		if err != nil {
			return err
		}
		if !actor.CanSee(order.ProjectID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusDelivered {
			return ErrAlreadyDelivered
		}

		at := s.now().UTC()
		moved, err := r.MarkDelivered(ctx, actor.OwnerID, id, at)
		if err != nil {
			return err
		}
		if !moved {
			return ErrAlreadyDelivered
		}
		order.Status = enums.OrderStatusDelivered
		order.ETA = ArrivedETA
		order.DeliveredAt = &at

		qty := LeadingQuantity(order.Quantity)
		item, err := s.stock.ReceiveTx(ctx, tx, order.OwnerID, order.ProjectID, order.Item, decimal.NewFromInt(qty))
		if err != nil {
			return err
		}

		result = Delivery{Order: *FromModel(order), Inventory: *inventory.FromModel(item), Received: qty}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.Ref(),
			Data: payloads.OrderDeliveredEvent{
				OrderID:         order.ID,
				OwnerID:         order.OwnerID,
				ProjectID:       order.ProjectID,
				InventoryItemID: item.ID,
				Item:            order.Item,
				Quantity:        qty,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deliver order")
	}
	return &result, nil
}

func (s *service) PlaceTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return s.repo.WithTx(tx).Create(ctx, order)
}

// CancelTx deletes an order that has not arrived. A delivered order is kept
// and ErrAlreadyDelivered returned.
func (s *service) CancelTx(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) error {
	r := s.repo.WithTx(tx)
	removed, err := r.DeleteUndelivered(ctx, ownerID, id)
	if err != nil || removed {
		return err
	}
	if _, err := r.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return ErrAlreadyDelivered
}

// MaxReceivedQuantity is the largest whole quantity inventory.quantity
// (numeric(14,3)) can hold.
const MaxReceivedQuantity int64 = 99_999_999_999

// LeadingQuantity reads the integer a quantity label starts with, so
// "50 Units" is 50. Labels without one, or with a negative one, read 0.
// Larger values clamp to MaxReceivedQuantity.
func LeadingQuantity(label string) int64 {
	match := strings.TrimSpace(leadingIntRe.FindString(label))
	if match == "" {
		return 0
	}
	n, err := strconv.ParseInt(match, 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange) && n > 0:
		return MaxReceivedQuantity
	case err != nil || n < 0:
		return 0
	case n > MaxReceivedQuantity:
		return MaxReceivedQuantity
	}
	return n
}
