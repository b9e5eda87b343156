package procurement

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/notifications"
	"github.com/angelmondragon/siteboss-backend/internal/orders"
	"github.com/angelmondragon/siteboss-backend/internal/transactions"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/metrics"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/siteboss-backend/pkg/realtime"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

const sagaName = "material_request"

const (
	materialCategory = "Material"
	orderETA         = "4 Hours"
	unknownItem      = "Unknown Item"
	bulkQuantity     = "Bulk Units"
)

var firstIntRe = regexp.MustCompile(`\d+`)

// errStepMoved means another run advanced or closed the saga first.
var errStepMoved = errors.New("material request saga moved on")

// Service runs the owner's answer to notifications. Acting on a material
// request books the expense, places the order and clears the request as a
// compensated saga; any other notification is dismissed.
type Service interface {
	Act(ctx context.Context, actor access.Actor, notificationID uuid.UUID, input ActInput) (*ActResult, error)
	// Recover compensates RUNNING sagas last touched before staleBefore.
	Recover(ctx context.Context, staleBefore time.Time, limit int) (*RecoveryReport, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Params bundles the collaborators of the approval saga.
type Params struct {
	DB      txRunner
	Repo    Repository
	Inbox   notifications.Inbox
	Ledger  transactions.Recorder
	Orders  orders.Placer
	Emitter outbox.Emitter
	Live    realtime.Publisher
	Metrics *metrics.SagaMetrics
	Logger  *logger.Logger
}

type service struct {
	db      txRunner
	repo    Repository
	inbox   notifications.Inbox
	ledger  transactions.Recorder
	orders  orders.Placer
	outbox  outbox.Emitter
	live    realtime.Publisher
	metrics *metrics.SagaMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(p Params) (Service, error) {
	switch {
	case p.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "saga repository required")
	case p.Inbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification inbox required")
	case p.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction recorder required")
	case p.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order placer required")
	case p.Emitter == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	return &service{
		db:      p.DB,
		repo:    p.Repo,
		inbox:   p.Inbox,
		ledger:  p.Ledger,
		orders:  p.Orders,
		outbox:  p.Emitter,
		live:    p.Live,
		metrics: p.Metrics,
		logg:    p.Logger,
		now:     time.Now,
	}, nil
}

func (s *service) Act(ctx context.Context, actor access.Actor, notificationID uuid.UUID, input ActInput) (*ActResult, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	ctx = s.withFields(ctx, notificationID)
	started := s.now()

	existing, err := s.repo.FindByNotification(ctx, actor.OwnerID, notificationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case enums.SagaStatusCompleted:
			s.metrics.Observe(sagaName, metrics.SagaReplayed, 0)
			return &ActResult{Outcome: OutcomeOrdered, Replayed: true, Saga: FromModel(existing)}, nil
		case enums.SagaStatusRunning:
			s.info(ctx, "material_request.resume")
			return s.run(ctx, &attempt{actor: actor, saga: *existing}, started)
		case enums.SagaStatusFailed:
			resumed, err := s.settleFailed(ctx, existing)
			if err != nil {
				return nil, err
			}
			if resumed {
				return s.run(ctx, &attempt{actor: actor, saga: *existing}, started)
			}
		}
	}

	var note *models.Notification
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.inbox.GetTx(ctx, tx, actor.OwnerID, notificationID)
		if err != nil {
			return err
		}
		if note.Title != notifications.MaterialRequestTitle {
			return s.inbox.RemoveTx(ctx, tx, actor.OwnerID, notificationID)
		}
		return nil
	})
	if err != nil {
		return nil, asInternal(err, "load notification")
	}
	if note.Title != notifications.MaterialRequestTitle {
		return &ActResult{Outcome: OutcomeDismissed}, nil
	}

	cost, err := requireCost(input.Cost)
	if err != nil {
		return nil, err
	}
	saga := models.MaterialRequestSaga{
		OwnerID:        actor.OwnerID,
		NotificationID: notificationID,
		ProjectID:      note.ProjectID,
		Item:           ItemOf(note),
		QuantityLabel:  QuantityLabel(note.Message),
		Cost:           cost,
		Status:         enums.SagaStatusRunning,
		Step:           enums.SagaStepStarted,
	}
	if existing == nil {
		if err := s.repo.Create(ctx, &saga); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				return nil, inProgress()
			}
			return nil, err
		}
	} else {
		saga.ID = existing.ID
		saga.CreatedAt = existing.CreatedAt
		restarted, err := s.repo.Restart(ctx, &saga)
		if err != nil {
			return nil, err
		}
		if !restarted {
			return nil, inProgress()
		}
	}

	s.info(ctx, "material_request.start")
	return s.run(ctx, &attempt{actor: actor, saga: saga}, started)
}

// attempt is the state one run carries between steps.
type attempt struct {
	actor access.Actor
	saga  models.MaterialRequestSaga
	order *models.Order
}

type step struct {
	name  enums.SagaStep
	apply func(ctx context.Context, tx *gorm.DB, a *attempt) error
}

func (s *service) steps() []step {
	return []step{
		{name: enums.SagaStepTransactionCreated, apply: s.recordExpense},
		{name: enums.SagaStepOrderCreated, apply: s.placeOrder},
		{name: enums.SagaStepNotificationRemoved, apply: s.clearRequest},
	}
}

// run executes the steps after the saga's recorded step. Each step commits
// together with the saga row, so a crash leaves the row at the last
// completed step.
func (s *service) run(ctx context.Context, cur *attempt, started time.Time) (*ActResult, error) {
	done := stepIndex(cur.saga.Step)
	for i, st := range s.steps() {
		if i < done {
			continue
		}
		next := *cur
		from := cur.saga.Step
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := st.apply(ctx, tx, &next); err != nil {
				return err
			}
			next.saga.Step = st.name
			moved, err := s.repo.WithTx(tx).Advance(ctx, &next.saga, from)
			if err != nil {
				return err
			}
			if !moved {
				return errStepMoved
			}
			return nil
		})
		if errors.Is(err, errStepMoved) {
			return nil, inProgress()
		}
		if err != nil {
			return nil, s.compensate(ctx, &cur.saga, st.name, err, started)
		}
		*cur = next
	}

	s.metrics.Observe(sagaName, metrics.SagaCompleted, s.now().Sub(started))
	s.info(ctx, "material_request.completed")

	result := &ActResult{Outcome: OutcomeOrdered, Saga: FromModel(&cur.saga)}
	if cur.order != nil {
		result.Order = orders.FromModel(cur.order)
		realtime.Announce(ctx, s.live, s.logg, cur.saga.OwnerID, realtime.TableOrders, result.Order)
	}
	return result, nil
}

func (s *service) recordExpense(ctx context.Context, tx *gorm.DB, a *attempt) error {
	txn := &models.Transaction{
		OwnerID:       a.saga.OwnerID,
		ProjectID:     a.saga.ProjectID,
		Title:         "Order: " + a.saga.Item,
		Amount:        a.saga.Cost,
		Type:          enums.TransactionTypeExpense,
		Status:        enums.TransactionStatusPaid,
		Category:      materialCategory,
		CreatedByRole: enums.RoleOwner,
		CreatedByName: a.actor.Name,
	}
	if err := s.ledger.RecordTx(ctx, tx, txn); err != nil {
		return err
	}
	a.saga.TransactionID = &txn.ID
	return nil
}

func (s *service) placeOrder(ctx context.Context, tx *gorm.DB, a *attempt) error {
	order := &models.Order{
		OwnerID:       a.saga.OwnerID,
		ProjectID:     a.saga.ProjectID,
		TransactionID: a.saga.TransactionID,
		Item:          a.saga.Item,
		Quantity:      a.saga.QuantityLabel,
		Status:        enums.OrderStatusInTransit,
		PaymentStatus: enums.PaymentStatusPaid,
		ETA:           orderETA,
	}
	if err := s.orders.PlaceTx(ctx, tx, order); err != nil {
		return err
	}
	a.saga.OrderID = &order.ID
	a.order = order
	return nil
}

func (s *service) clearRequest(ctx context.Context, tx *gorm.DB, a *attempt) error {
	if a.saga.TransactionID == nil || a.saga.OrderID == nil {
		return fmt.Errorf("saga %s reached %s without its transaction and order", a.saga.ID, enums.SagaStepOrderCreated)
	}
	if err := ignoreNotFound(s.inbox.RemoveTx(ctx, tx, a.saga.OwnerID, a.saga.NotificationID)); err != nil {
		return err
	}
	a.saga.Status = enums.SagaStatusCompleted
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventMaterialRequestApproved,
		AggregateType: enums.AggregateNotification,
		AggregateID:   a.saga.NotificationID,
		Actor:         a.actor.Ref(),
		Data: payloads.MaterialRequestApprovedEvent{
			SagaID:         a.saga.ID,
			NotificationID: a.saga.NotificationID,
			OwnerID:        a.saga.OwnerID,
			TransactionID:  *a.saga.TransactionID,
			OrderID:        *a.saga.OrderID,
			Item:           a.saga.Item,
			Cost:           a.saga.Cost,
		},
	})
}

// compensate undoes the committed steps in reverse and closes the saga. The
// caller always gets a DEPENDENCY error carrying the combined failures.
func (s *service) compensate(ctx context.Context, saga *models.MaterialRequestSaga, failed enums.SagaStep, cause error, started time.Time) error {
	undoErr := s.undo(ctx, saga)
	if errors.Is(undoErr, orders.ErrAlreadyDelivered) {
		// stock is booked, so the approval can only finish; the row stays
		// RUNNING for a retry or the recovery job
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "failed_step", string(failed)), "material_request.delivered_before_rollback")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "material request approval interrupted").
			WithDetails(map[string]any{"saga_id": saga.ID, "status": enums.SagaStatusRunning})
	}
	status, outcome := enums.SagaStatusCompensated, metrics.SagaCompensated
	if undoErr != nil {
		status, outcome = enums.SagaStatusFailed, metrics.SagaFailed
	}

	combined := multierr.Combine(fmt.Errorf("%s: %w", failed, cause), undoErr)
	msg := combined.Error()
	if _, err := s.repo.Finish(ctx, saga.ID, enums.SagaStatusRunning, status, &msg); err != nil {
		combined = multierr.Append(combined, err)
	}
	saga.Status = status
	saga.LastError = &msg

	s.metrics.Observe(sagaName, outcome, s.now().Sub(started))
	if s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "saga_status", status), "material_request.rolled_back", combined)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "material request approval failed").
		WithDetails(map[string]any{"saga_id": saga.ID, "status": status})
}

// undo deletes the order, then the transaction. Rows already gone count as
// undone so a second pass is safe. A delivered order stops the rollback with
// orders.ErrAlreadyDelivered and leaves the transaction in place.
func (s *service) undo(ctx context.Context, saga *models.MaterialRequestSaga) error {
	var errs error
	if saga.OrderID != nil {
		orderID := *saga.OrderID
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return ignoreNotFound(s.orders.CancelTx(ctx, tx, saga.OwnerID, orderID))
		})
		if errors.Is(err, orders.ErrAlreadyDelivered) {
			return err
		}
		errs = multierr.Append(errs, err)
	}
	if saga.TransactionID != nil {
		txnID := *saga.TransactionID
		errs = multierr.Append(errs, s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return ignoreNotFound(s.ledger.DeleteTx(ctx, tx, saga.OwnerID, txnID))
		}))
	}
	return errs
}

// settleFailed retries the compensation of a FAILED saga so it can be
// restarted. When its order was delivered meanwhile the saga is reopened
// instead and resumed reports true.
func (s *service) settleFailed(ctx context.Context, saga *models.MaterialRequestSaga) (resumed bool, err error) {
	undoErr := s.undo(ctx, saga)
	to := enums.SagaStatusCompensated
	switch {
	case errors.Is(undoErr, orders.ErrAlreadyDelivered):
		to = enums.SagaStatusRunning
	case undoErr != nil:
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, undoErr, "previous approval could not be rolled back")
	}
	settled, err := s.repo.Finish(ctx, saga.ID, enums.SagaStatusFailed, to, saga.LastError)
	if err != nil {
		return false, err
	}
	if !settled {
		return false, inProgress()
	}
	saga.Status = to
	return to == enums.SagaStatusRunning, nil
}

func (s *service) Recover(ctx context.Context, staleBefore time.Time, limit int) (*RecoveryReport, error) {
	stale, err := s.repo.ListStale(ctx, staleBefore, limit)
	if err != nil {
		return nil, err
	}

	report := &RecoveryReport{Scanned: len(stale)}
	var errs error
	for i := range stale {
		saga := &stale[i]
		sagaCtx := s.withFields(ctx, saga.NotificationID)

		undoErr := s.undo(sagaCtx, saga)
		if errors.Is(undoErr, orders.ErrAlreadyDelivered) {
			if err := s.finishDelivered(sagaCtx, saga); err != nil {
				report.Failed++
				errs = multierr.Append(errs, fmt.Errorf("saga %s: %w", saga.ID, err))
				continue
			}
			report.Completed++
			continue
		}
		status := enums.SagaStatusCompensated
		msg := fmt.Sprintf("stalled after %s", saga.Step)
		if undoErr != nil {
			status = enums.SagaStatusFailed
			msg = multierr.Combine(errors.New(msg), undoErr).Error()
		}
		closed, err := s.repo.Finish(sagaCtx, saga.ID, enums.SagaStatusRunning, status, &msg)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !closed {
			continue
		}
		if undoErr != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("saga %s: %w", saga.ID, undoErr))
			s.metrics.Observe(sagaName, metrics.SagaFailed, 0)
			continue
		}
		report.Compensated++
		s.metrics.Observe(sagaName, metrics.SagaRecovered, 0)
		s.info(sagaCtx, "material_request.recovered")
	}
	return report, errs
}

// finishDelivered rolls a stalled saga forward once its order has arrived.
// Deleting the expense would leave delivered stock unpaid for.
func (s *service) finishDelivered(ctx context.Context, saga *models.MaterialRequestSaga) error {
	owner := access.Actor{UserID: saga.OwnerID, OwnerID: saga.OwnerID, Role: enums.RoleOwner}
	_, err := s.run(ctx, &attempt{actor: owner, saga: *saga}, s.now())
	if err == nil {
		s.info(ctx, "material_request.completed_after_delivery")
	}
	return err
}

// ItemOf names the material on a request, falling back to "Unknown Item".
func ItemOf(note *models.Notification) string {
	if note.Item != nil {
		if item := strings.TrimSpace(*note.Item); item != "" {
			return item
		}
	}
	return unknownItem
}

// QuantityLabel builds the order quantity from the first integer in the
// request message, or "Bulk Units" when there is none.
func QuantityLabel(message string) string {
	if n := firstIntRe.FindString(message); n != "" {
		return n + " Units"
	}
	return bulkQuantity
}

func requireCost(cost types.LooseAmount) (decimal.Decimal, error) {
	if !cost.Set {
		return decimal.Zero, pkgerrors.Required("cost")
	}
	if cost.Value.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cost must not be negative").
			WithDetails(map[string]string{"cost": "must not be negative"})
	}
	return cost.Value, nil
}

func stepIndex(step enums.SagaStep) int {
	switch step {
	case enums.SagaStepTransactionCreated:
		return 1
	case enums.SagaStepOrderCreated:
		return 2
	case enums.SagaStepNotificationRemoved:
		return 3
	default:
		return 0
	}
}

func ignoreNotFound(err error) error {
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil
	}
	return err
}

func inProgress() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "material request approval already in progress")
}

func asInternal(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func (s *service) withFields(ctx context.Context, notificationID uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{"saga": sagaName, "notification_id": notificationID.String()})
}

func (s *service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}
