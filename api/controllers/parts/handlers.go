package parts

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/motorshop-backend/api/middleware"
	"github.com/angelmondragon/motorshop-backend/api/responses"
	"github.com/angelmondragon/motorshop-backend/api/validators"
	internalparts "github.com/angelmondragon/motorshop-backend/internal/parts"
	"github.com/angelmondragon/motorshop-backend/pkg/conflict"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/pagination"
)

// Stock reports the current stock on hand of a part.
func Stock(svc internalparts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, ok := parsePartID(w, r, svc, logg)
		if !ok {
			return
		}
		stock, err := svc.CurrentStock(r.Context(), partID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, StockResponse{PartID: partID, StockOnHand: stock})
	}
}

// Movements pages through the part's movement history, newest first.
func Movements(svc internalparts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, ok := parsePartID(w, r, svc, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMovements(r.Context(), partID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fromMovementList(list))
	}
}

// Adjust records a manual movement against the part.
func Adjust(svc internalparts.Service, policy conflict.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, ok := parsePartID(w, r, svc, logg)
		if !ok {
			return
		}
		var body AdjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseMovementKind(body.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement kind"))
			return
		}
		input := internalparts.MovementInput{
			PartID:    partID,
			Kind:      kind,
			Quantity:  body.Quantity,
			Reference: body.Reference,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
		}
		movement, err := conflict.Value(r.Context(), policy, func(ctx context.Context) (*models.PartMovement, error) {
			return svc.Adjust(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, fromMovement(movement))
	}
}

// Ledger replays the part's movements and compares them with stored stock.
func Ledger(svc internalparts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, ok := parsePartID(w, r, svc, logg)
		if !ok {
			return
		}
		report, err := svc.VerifyLedger(r.Context(), partID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fromLedgerReport(report))
	}
}

func parsePartID(w http.ResponseWriter, r *http.Request, svc internalparts.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "parts service unavailable"))
		return uuid.Nil, false
	}
	raw := strings.TrimSpace(chi.URLParam(r, "partId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid part id"))
		return uuid.Nil, false
	}
	return id, true
}
