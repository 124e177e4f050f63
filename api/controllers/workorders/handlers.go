package workorders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	workorderdto "github.com/angelmondragon/motorshop-backend/api/controllers/workorders/dto"
	"github.com/angelmondragon/motorshop-backend/api/middleware"
	"github.com/angelmondragon/motorshop-backend/api/responses"
	"github.com/angelmondragon/motorshop-backend/api/validators"
	"github.com/angelmondragon/motorshop-backend/internal/workorders"
	"github.com/angelmondragon/motorshop-backend/pkg/conflict"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/pagination"
)

const (
	maxTextLen      = 2000
	maxDiagnosisLen = 4000
)

// Create opens a work order for the authenticated actor.
func Create(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		var body workorderdto.CreateOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		priority, err := enums.ParseWorkOrderPriority(body.Priority)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority"))
			return
		}

		order, err := svc.CreateOrder(r.Context(), workorders.CreateOrderInput{
			OrderNumber:        body.OrderNumber,
			MotorcycleID:       body.MotorcycleID,
			ProblemDescription: validators.SanitizeString(body.ProblemDescription, maxTextLen),
			Priority:           priority,
			AssignedTo:         body.AssignedTo,
			ActorID:            middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, workorderdto.FromWorkOrder(order))
	}
}

// List pages through orders, optionally filtered by status or assignee.
func List(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		list, err := svc.ListOrders(r.Context(), workorders.ListOrdersInput{
			Status:        strings.TrimSpace(query.Get("status")),
			PaymentStatus: strings.TrimSpace(query.Get("paymentStatus")),
			AssignedTo:    strings.TrimSpace(query.Get("assignedTo")),
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(query.Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromOrderList(list))
	}
}

// Detail returns an order with its lines, payments and history.
func Detail(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetOrderDetail(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromOrderDetail(detail))
	}
}

func History(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListHistory(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromHistory(entries))
	}
}

func Transition(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body workorderdto.TransitionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := workorders.TransitionInput{
			OrderID:   orderID,
			NewStatus: strings.TrimSpace(body.Status),
			Comment:   body.Comment,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
		}
		res, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*workorders.TransitionResult, error) {
			return svc.TransitionStatus(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromTransition(res))
	}
}

// Recompute rebuilds the order totals from its lines.
func Recompute(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID := middleware.ActorIDFromContext(r.Context())
		order, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*models.WorkOrder, error) {
			return svc.RecomputeTotals(ctx, orderID, actorID)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromWorkOrder(order))
	}
}

// AddPart consumes stock onto the order.
func AddPart(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body workorderdto.AddPartUsageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := workorders.AddPartUsageInput{
			OrderID:   orderID,
			PartID:    body.PartID,
			Quantity:  body.Quantity,
			UnitPrice: body.UnitPrice,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
		}
		res, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*workorders.UsageResult, error) {
			return svc.AddPartUsage(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, workorderdto.FromUsageResult(res))
	}
}

func UpdatePart(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		usageID, err := pathUUID(r, "usageId", "usage id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body workorderdto.UpdateUsageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := workorders.UpdateUsageInput{
			OrderID:  orderID,
			UsageID:  usageID,
			Quantity: body.Quantity,
			ActorID:  middleware.ActorIDFromContext(r.Context()),
		}
		res, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*workorders.UsageResult, error) {
			return svc.UpdateUsageQuantity(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromUsageResult(res))
	}
}

// RemovePart returns the usage's stock and drops it from the order.
func RemovePart(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		usageID, err := pathUUID(r, "usageId", "usage id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := workorders.RemoveUsageInput{
			OrderID: orderID,
			UsageID: usageID,
			ActorID: middleware.ActorIDFromContext(r.Context()),
		}
		order, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*models.WorkOrder, error) {
			return svc.RemoveUsage(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromWorkOrder(order))
	}
}

func AddService(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body workorderdto.AddServiceLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := workorders.AddServiceLineInput{
			OrderID:      orderID,
			ServiceID:    body.ServiceID,
			AppliedPrice: body.AppliedPrice,
			Notes:        body.Notes,
			ActorID:      middleware.ActorIDFromContext(r.Context()),
		}
		res, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*workorders.ServiceLineResult, error) {
			return svc.AddServiceLine(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, workorderdto.FromServiceLineResult(res))
	}
}

func UpdateService(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := pathUUID(r, "lineId", "service line id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body workorderdto.UpdateServicePriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := workorders.UpdateServicePriceInput{
			OrderID: orderID,
			LineID:  lineID,
			Price:   body.Price,
			ActorID: middleware.ActorIDFromContext(r.Context()),
		}
		res, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*workorders.ServiceLineResult, error) {
			return svc.UpdateServicePrice(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromServiceLineResult(res))
	}
}

func RemoveService(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := pathUUID(r, "lineId", "service line id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := workorders.RemoveServiceLineInput{
			OrderID: orderID,
			LineID:  lineID,
			ActorID: middleware.ActorIDFromContext(r.Context()),
		}
		order, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*models.WorkOrder, error) {
			return svc.RemoveServiceLine(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromWorkOrder(order))
	}
}

// RegisterPayment records money received and returns the new payment status.
func RegisterPayment(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body workorderdto.RegisterPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(body.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}
		input := workorders.RegisterPaymentInput{
			OrderID:   orderID,
			Amount:    body.Amount,
			Method:    method,
			Reference: body.Reference,
			Notes:     body.Notes,
			PaidAt:    body.PaidAt,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
		}
		res, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*workorders.PaymentResult, error) {
			return svc.RegisterPayment(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, workorderdto.FromPaymentResult(res))
	}
}

func Assign(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body workorderdto.AssignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID := middleware.ActorIDFromContext(r.Context())
		order, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*models.WorkOrder, error) {
			return svc.AssignOrder(ctx, orderID, body.AssignedTo, actorID)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromWorkOrder(order))
	}
}

func Diagnose(svc workorders.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready(w, r, svc, logg) {
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body workorderdto.DiagnosisRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID := middleware.ActorIDFromContext(r.Context())
		order, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*models.WorkOrder, error) {
			return svc.UpdateDiagnosis(ctx, orderID, validators.SanitizeString(body.Diagnosis, maxDiagnosisLen), actorID)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workorderdto.FromWorkOrder(order))
	}
}

func ready(w http.ResponseWriter, r *http.Request, svc workorders.Service, logg *logger.Logger) bool {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work orders service unavailable"))
		return false
	}
	return true
}

func pathUUID(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
