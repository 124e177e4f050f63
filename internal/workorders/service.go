package workorders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/internal/history"
	"github.com/angelmondragon/motorshop-backend/internal/payments"
	"github.com/angelmondragon/motorshop-backend/internal/servicelines"
	"github.com/angelmondragon/motorshop-backend/internal/usage"
	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/motorshop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OperationRecorder receives per-operation timings and lost races.
type OperationRecorder interface {
	IncConflict(operation string)
	ObserveDuration(operation string, d time.Duration)
}

// Service owns a work order's lifecycle. Every mutation runs in one
// transaction that locks the order row first, applies the change through the
// owning registrar and finishes by recomputing totals under a version check.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.WorkOrder, error)
	TransitionStatus(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	RecomputeTotals(ctx context.Context, orderID uuid.UUID, actorID string) (*models.WorkOrder, error)
	AddPartUsage(ctx context.Context, input AddPartUsageInput) (*UsageResult, error)
	UpdateUsageQuantity(ctx context.Context, input UpdateUsageInput) (*UsageResult, error)
	RemoveUsage(ctx context.Context, input RemoveUsageInput) (*models.WorkOrder, error)
	AddServiceLine(ctx context.Context, input AddServiceLineInput) (*ServiceLineResult, error)
	UpdateServicePrice(ctx context.Context, input UpdateServicePriceInput) (*ServiceLineResult, error)
	RemoveServiceLine(ctx context.Context, input RemoveServiceLineInput) (*models.WorkOrder, error)
	RegisterPayment(ctx context.Context, input RegisterPaymentInput) (*PaymentResult, error)
	AssignOrder(ctx context.Context, orderID uuid.UUID, assigneeID, actorID string) (*models.WorkOrder, error)
	UpdateDiagnosis(ctx context.Context, orderID uuid.UUID, diagnosis, actorID string) (*models.WorkOrder, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.WorkOrder, error)
	GetOrderDetail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.WorkOrderHistoryEntry, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
}

// Params carries the collaborators of the work order service. Policy,
// Logger and Metrics are optional.
type Params struct {
	Repository   Repository
	Tx           txRunner
	Usage        usage.Service
	ServiceLines servicelines.Service
	History      history.Service
	Payments     payments.Service
	Outbox       outboxPublisher
	Policy       StatusPolicy
	Logger       *logger.Logger
	Metrics      OperationRecorder
}

type service struct {
	repo     Repository
	tx       txRunner
	usage    usage.Service
	lines    servicelines.Service
	history  history.Service
	payments payments.Service
	outbox   outboxPublisher
	policy   StatusPolicy
	logg     *logger.Logger
	metrics  OperationRecorder
	now      func() time.Time
}

// NewService builds the work order service with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("work orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage registrar required")
	}
	if params.ServiceLines == nil {
		return nil, fmt.Errorf("service registrar required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history recorder required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment tracker required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	policy := params.Policy
	if policy == nil {
		policy = AnyStatusPolicy
	}
	var metrics OperationRecorder = noopRecorder{}
	if params.Metrics != nil {
		metrics = params.Metrics
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		usage:    params.Usage,
		lines:    params.ServiceLines,
		history:  params.History,
		payments: params.Payments,
		outbox:   params.Outbox,
		policy:   policy,
		logg:     params.Logger,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.WorkOrder, error) {
	if input.MotorcycleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "motorcycle id required")
	}
	problem := strings.TrimSpace(input.ProblemDescription)
	if problem == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "problem description required")
	}
	if err := requireActor(input.ActorID); err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == "" {
		priority = enums.WorkOrderPriorityNormal
	}
	if !priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", input.Priority))
	}
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		number = GenerateOrderNumber(s.now())
	}

	order := &models.WorkOrder{
		OrderNumber:        number,
		MotorcycleID:       input.MotorcycleID,
		CreatedBy:          input.ActorID,
		AssignedTo:         normalizeOptional(input.AssignedTo),
		Status:             StatusReceived,
		Priority:           priority,
		ProblemDescription: problem,
		ServiceTotal:       decimal.Zero,
		PartsTotal:         decimal.Zero,
		OrderTotal:         decimal.Zero,
		PaymentStatus:      enums.PaymentStatusPending,
	}

	err := s.run(ctx, "create_order", func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateOrderNumber, "order number already exists").
					WithDetails(map[string]any{"order_number": number})
			}
			return db.StorageError(err, "work order", "create work order")
		}
		if _, err := s.history.RecordTransition(ctx, tx, history.TransitionInput{
			OrderID:   order.ID,
			NewStatus: order.Status,
			ActorID:   input.ActorID,
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventWorkOrderCreated, order.ID, input.ActorID, payloads.WorkOrderCreatedEvent{
			WorkOrderID:        order.ID,
			OrderNumber:        order.OrderNumber,
			MotorcycleID:       order.MotorcycleID,
			Status:             order.Status,
			Priority:           order.Priority,
			ProblemDescription: order.ProblemDescription,
			AssignedTo:         order.AssignedTo,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "work_order.created", order, input.ActorID, map[string]any{
		"order_number": order.OrderNumber,
	})
	return order, nil
}

func (s *service) TransitionStatus(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	target := strings.TrimSpace(input.NewStatus)
	if target == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new status required")
	}
	if err := requireActor(input.ActorID); err != nil {
		return nil, err
	}

	result := &TransitionResult{}
	err := s.run(ctx, "transition_status", func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		previous := order.Status
		if !s.policy.Allow(previous, target) {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrTransitionNotAllowed, "status transition not allowed").
				WithDetails(map[string]any{"from": previous, "to": target})
		}

		entry, err := s.history.RecordTransition(ctx, tx, history.TransitionInput{
			OrderID:        order.ID,
			PreviousStatus: &previous,
			NewStatus:      target,
			Comment:        normalizeOptional(input.Comment),
			ActorID:        input.ActorID,
		})
		if err != nil {
			return err
		}

		fields := map[string]any{"status": target}
		if target == StatusDelivered && order.DeliveredAt == nil {
			deliveredAt := s.now().UTC()
			fields["delivered_at"] = deliveredAt
			order.DeliveredAt = &deliveredAt
		}
		if err := s.save(ctx, tx, order, fields); err != nil {
			return err
		}
		order.Status = target

		result.Order = order
		result.Entry = entry
		return s.emit(ctx, tx, enums.EventWorkOrderStatusChanged, order.ID, input.ActorID, payloads.WorkOrderStatusChangedEvent{
			WorkOrderID:    order.ID,
			OrderNumber:    order.OrderNumber,
			PreviousStatus: previous,
			NewStatus:      target,
			Comment:        entry.Comment,
			DeliveredAt:    order.DeliveredAt,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "work_order.status_changed", result.Order, input.ActorID, map[string]any{
		"previous_status": *result.Entry.PreviousStatus,
		"new_status":      result.Entry.NewStatus,
	})
	return result, nil
}

func (s *service) RecomputeTotals(ctx context.Context, orderID uuid.UUID, actorID string) (*models.WorkOrder, error) {
	return s.mutate(ctx, "recompute_totals", orderID, actorID, func(*gorm.DB, *models.WorkOrder) error {
		return nil
	})
}

func (s *service) AddPartUsage(ctx context.Context, input AddPartUsageInput) (*UsageResult, error) {
	result := &UsageResult{}
	order, err := s.mutate(ctx, "add_part_usage", input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.WorkOrder) error {
		created, err := s.usage.AddUsage(ctx, tx, usage.AddUsageInput{
			OrderID:   order.ID,
			PartID:    input.PartID,
			Quantity:  input.Quantity,
			UnitPrice: input.UnitPrice,
			ActorID:   input.ActorID,
		})
		if err != nil {
			return err
		}
		result.Usage = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}

func (s *service) UpdateUsageQuantity(ctx context.Context, input UpdateUsageInput) (*UsageResult, error) {
	result := &UsageResult{}
	order, err := s.mutate(ctx, "update_usage_quantity", input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.WorkOrder) error {
		if err := s.ensureUsageOnOrder(ctx, tx, order.ID, input.UsageID); err != nil {
			return err
		}
		updated, err := s.usage.UpdateQuantity(ctx, tx, input.UsageID, input.Quantity, input.ActorID)
		if err != nil {
			return err
		}
		result.Usage = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}

func (s *service) RemoveUsage(ctx context.Context, input RemoveUsageInput) (*models.WorkOrder, error) {
	return s.mutate(ctx, "remove_usage", input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.WorkOrder) error {
		if err := s.ensureUsageOnOrder(ctx, tx, order.ID, input.UsageID); err != nil {
			return err
		}
		_, err := s.usage.RemoveUsage(ctx, tx, input.UsageID, input.ActorID)
		return err
	})
}

func (s *service) AddServiceLine(ctx context.Context, input AddServiceLineInput) (*ServiceLineResult, error) {
	result := &ServiceLineResult{}
	order, err := s.mutate(ctx, "add_service_line", input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.WorkOrder) error {
		line, err := s.lines.AddServiceLine(ctx, tx, servicelines.AddServiceLineInput{
			OrderID:      order.ID,
			ServiceID:    input.ServiceID,
			AppliedPrice: input.AppliedPrice,
			Notes:        normalizeOptional(input.Notes),
		})
		if err != nil {
			return err
		}
		result.Line = line
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}

func (s *service) UpdateServicePrice(ctx context.Context, input UpdateServicePriceInput) (*ServiceLineResult, error) {
	result := &ServiceLineResult{}
	order, err := s.mutate(ctx, "update_service_price", input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.WorkOrder) error {
		if err := s.ensureLineOnOrder(ctx, tx, order.ID, input.LineID); err != nil {
			return err
		}
		line, err := s.lines.UpdatePrice(ctx, tx, input.LineID, input.Price)
		if err != nil {
			return err
		}
		result.Line = line
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}

func (s *service) RemoveServiceLine(ctx context.Context, input RemoveServiceLineInput) (*models.WorkOrder, error) {
	return s.mutate(ctx, "remove_service_line", input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.WorkOrder) error {
		if err := s.ensureLineOnOrder(ctx, tx, order.ID, input.LineID); err != nil {
			return err
		}
		_, err := s.lines.RemoveServiceLine(ctx, tx, input.LineID)
		return err
	})
}

func (s *service) RegisterPayment(ctx context.Context, input RegisterPaymentInput) (*PaymentResult, error) {
	result := &PaymentResult{}
	order, err := s.mutate(ctx, "register_payment", input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.WorkOrder) error {
		payment, err := s.payments.RegisterPayment(ctx, tx, payments.RegisterPaymentInput{
			OrderID:   order.ID,
			Amount:    input.Amount,
			Method:    input.Method,
			Reference: normalizeOptional(input.Reference),
			Notes:     normalizeOptional(input.Notes),
			PaidAt:    input.PaidAt,
			ActorID:   input.ActorID,
		})
		if err != nil {
			return err
		}
		result.Payment = payment
		return nil
	}, func(tx *gorm.DB, order *models.WorkOrder, paid decimal.Decimal) error {
		result.TotalPaid = paid
		return s.emit(ctx, tx, enums.EventPaymentRegistered, order.ID, input.ActorID, payloads.PaymentRegisteredEvent{
			WorkOrderID:   order.ID,
			PaymentID:     result.Payment.ID,
			Amount:        result.Payment.Amount.StringFixed(2),
			Method:        result.Payment.Method,
			TotalPaid:     paid.StringFixed(2),
			OrderTotal:    order.OrderTotal.StringFixed(2),
			PaymentStatus: order.PaymentStatus,
			PaidAt:        result.Payment.PaidAt,
		})
	})
	if err != nil {
		return nil, err
	}
	result.Order = order
	s.logEvent(ctx, "payment.registered", order, input.ActorID, map[string]any{
		"payment_id":     result.Payment.ID.String(),
		"amount":         result.Payment.Amount.StringFixed(2),
		"payment_status": string(order.PaymentStatus),
	})
	return result, nil
}

func (s *service) AssignOrder(ctx context.Context, orderID uuid.UUID, assigneeID, actorID string) (*models.WorkOrder, error) {
	assignee := strings.TrimSpace(assigneeID)
	if assignee == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignee id required")
	}
	return s.update(ctx, "assign_order", orderID, actorID, map[string]any{"assigned_to": assignee}, func(order *models.WorkOrder) {
		order.AssignedTo = &assignee
	})
}

func (s *service) UpdateDiagnosis(ctx context.Context, orderID uuid.UUID, diagnosis, actorID string) (*models.WorkOrder, error) {
	text := strings.TrimSpace(diagnosis)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "diagnosis required")
	}
	return s.update(ctx, "update_diagnosis", orderID, actorID, map[string]any{"diagnosis": text}, func(order *models.WorkOrder) {
		order.Diagnosis = &text
	})
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.WorkOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(orderID)
		}
		return nil, db.StorageError(err, "work order", "load work order")
	}
	return order, nil
}

// GetOrderDetail reads the order and its attachments in one transaction so
// the totals match the rows returned.
func (s *service) GetOrderDetail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	detail := &OrderDetail{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orderNotFound(orderID)
			}
			return db.StorageError(err, "work order", "load work order")
		}
		detail.Order = order
		if detail.ServiceLines, err = s.lines.ListByOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if detail.PartUsages, err = s.usage.ListByOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if detail.Payments, err = s.payments.List(ctx, tx, orderID); err != nil {
			return err
		}
		if detail.History, err = s.history.List(ctx, tx, orderID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	paid := decimal.Zero
	for _, p := range detail.Payments {
		paid = paid.Add(p.Amount)
	}
	detail.TotalPaid = paid
	detail.Balance = detail.Order.OrderTotal.Sub(paid)
	return detail, nil
}

func (s *service) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.WorkOrderHistoryEntry, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.history.List(ctx, nil, orderID)
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListFilter{
		Status:     strings.TrimSpace(input.Status),
		AssignedTo: strings.TrimSpace(input.AssignedTo),
	}
	if raw := strings.TrimSpace(input.PaymentStatus); raw != "" {
		if filter.PaymentStatus, err = enums.ParsePaymentStatus(raw); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
	}
	rows, err := s.repo.List(ctx, filter, input.Params.Limit, cursor)
	if err != nil {
		return nil, db.StorageError(err, "work order", "list work orders")
	}

	page, next := pagination.Trim(rows, input.Params.Limit, func(o models.WorkOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &OrderList{Orders: page, NextCursor: next}, nil
}

type afterTotalsFunc func(tx *gorm.DB, order *models.WorkOrder, totalPaid decimal.Decimal) error

// mutate locks the order, runs fn and recomputes totals in one transaction.
// after runs once the new totals are known, still inside the transaction.
func (s *service) mutate(ctx context.Context, op string, orderID uuid.UUID, actorID string, fn func(tx *gorm.DB, order *models.WorkOrder) error, after ...afterTotalsFunc) (*models.WorkOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	var updated *models.WorkOrder
	err := s.run(ctx, op, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := fn(tx, order); err != nil {
			return err
		}
		paid, err := s.recomputeTotals(ctx, tx, order, actorID)
		if err != nil {
			return err
		}
		for _, hook := range after {
			if err := hook(tx, order, paid); err != nil {
				return err
			}
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// update writes plain order fields under the row lock and version check.
func (s *service) update(ctx context.Context, op string, orderID uuid.UUID, actorID string, fields map[string]any, apply func(*models.WorkOrder)) (*models.WorkOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	var updated *models.WorkOrder
	err := s.run(ctx, op, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := s.save(ctx, tx, order, fields); err != nil {
			return err
		}
		apply(order)
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// recomputeTotals derives the three totals and the payment status from the
// rows attached to the order and persists them with a version check. It
// returns the amount paid so far.
func (s *service) recomputeTotals(ctx context.Context, tx *gorm.DB, order *models.WorkOrder, actorID string) (decimal.Decimal, error) {
	lines, err := s.lines.ListByOrder(ctx, tx, order.ID)
	if err != nil {
		return decimal.Zero, err
	}
	usages, err := s.usage.ListByOrder(ctx, tx, order.ID)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := s.payments.TotalPaid(ctx, tx, order.ID)
	if err != nil {
		return decimal.Zero, err
	}

	serviceTotal := servicelines.Total(lines).Round(2)
	partsTotal := usage.Total(usages).Round(2)
	orderTotal := serviceTotal.Add(partsTotal)
	paymentStatus := payments.DerivePaymentStatus(paid, orderTotal)

	changed := !order.ServiceTotal.Equal(serviceTotal) ||
		!order.PartsTotal.Equal(partsTotal) ||
		!order.OrderTotal.Equal(orderTotal) ||
		order.PaymentStatus != paymentStatus

	if err := s.save(ctx, tx, order, map[string]any{
		"service_total":  serviceTotal,
		"parts_total":    partsTotal,
		"order_total":    orderTotal,
		"payment_status": paymentStatus,
	}); err != nil {
		return decimal.Zero, err
	}
	order.ServiceTotal = serviceTotal
	order.PartsTotal = partsTotal
	order.OrderTotal = orderTotal
	order.PaymentStatus = paymentStatus

	if !changed {
		return paid, nil
	}
	if err := s.emit(ctx, tx, enums.EventWorkOrderTotalsChanged, order.ID, actorID, payloads.WorkOrderTotalsChangedEvent{
		WorkOrderID:   order.ID,
		ServiceTotal:  serviceTotal.StringFixed(2),
		PartsTotal:    partsTotal.StringFixed(2),
		OrderTotal:    orderTotal.StringFixed(2),
		PaymentStatus: paymentStatus,
	}); err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}

func (s *service) save(ctx context.Context, tx *gorm.DB, order *models.WorkOrder, fields map[string]any) error {
	ok, err := s.repo.WithTx(tx).UpdateWithVersion(ctx, order.ID, order.Version, fields)
	if err != nil {
		return db.StorageError(err, "work order", "update work order")
	}
	if !ok {
		return pkgerrors.ConcurrentModification("work order").
			WithDetails(map[string]any{"work_order_id": order.ID, "version": order.Version})
	}
	order.Version++
	order.UpdatedAt = s.now().UTC()
	return nil
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.WorkOrder, error) {
	order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(orderID)
		}
		return nil, db.StorageError(err, "work order", "lock work order")
	}
	return order, nil
}

func (s *service) ensureUsageOnOrder(ctx context.Context, tx *gorm.DB, orderID, usageID uuid.UUID) error {
	found, err := s.usage.Find(ctx, tx, usageID)
	if err != nil {
		return err
	}
	if found.WorkOrderID != orderID {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, usage.ErrUsageNotFound, "part usage not found on work order").
			WithDetails(map[string]any{"usage_id": usageID, "work_order_id": orderID})
	}
	return nil
}

func (s *service) ensureLineOnOrder(ctx context.Context, tx *gorm.DB, orderID, lineID uuid.UUID) error {
	found, err := s.lines.Find(ctx, tx, lineID)
	if err != nil {
		return err
	}
	if found.WorkOrderID != orderID {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, servicelines.ErrLineNotFound, "service line not found on work order").
			WithDetails(map[string]any{"line_id": lineID, "work_order_id": orderID})
	}
	return nil
}

// run executes fn in a transaction and records duration and lost races.
func (s *service) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	err := s.tx.WithTx(ctx, fn)
	s.metrics.ObserveDuration(op, time.Since(start))
	if err == nil {
		return nil
	}
	if pkgerrors.IsRetryable(err) {
		s.metrics.IncConflict(op)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return db.StorageError(err, "work order", "commit work order transaction")
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID uuid.UUID, actorID string, data any) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateWorkOrder,
		AggregateID:   orderID,
		Actor:         &outbox.ActorRef{ActorID: actorID},
		Data:          data,
		OccurredAt:    s.now().UTC(),
	})
}

func (s *service) logEvent(ctx context.Context, msg string, order *models.WorkOrder, actorID string, fields map[string]any) {
	if s.logg == nil || order == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithActorID(ctx, actorID)
	fields["status"] = order.Status
	fields["order_total"] = order.OrderTotal.StringFixed(2)
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

// GenerateOrderNumber builds a WO-YYYYMMDD-XXXXXX number from the intake date
// and six random hex characters.
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("WO-%s-%s", now.UTC().Format("20060102"), suffix)
}

func requireActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func orderNotFound(id uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOrderNotFound, "work order not found").
		WithDetails(map[string]any{"work_order_id": id})
}

type noopRecorder struct{}

func (noopRecorder) IncConflict(string)                    {}
func (noopRecorder) ObserveDuration(string, time.Duration) {}
