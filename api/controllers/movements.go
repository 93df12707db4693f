package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dfcarvalho/patrimonio-backend/api/responses"
	"github.com/dfcarvalho/patrimonio-backend/api/validators"
	"github.com/dfcarvalho/patrimonio-backend/internal/movements"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
)

type movementCreateRequest struct {
	Type                 string     `json:"type" validate:"required"`
	AssetRef             string     `json:"asset_ref" validate:"required"`
	DestinationUnit      *int       `json:"destination_unit"`
	TemporaryCustodianID *string    `json:"temporary_custodian_id"`
	ExpectedReturnDate   *time.Time `json:"expected_return_date"`
	ReferenceDocument    *string    `json:"reference_document"`
	AuthorizerID         *string    `json:"authorizer_id"`
	ExecutorID           string     `json:"executor_id" validate:"required"`
	Justification        *string    `json:"justification"`
}

func (r movementCreateRequest) toRequest() (movements.Request, error) {
	movementType, err := enums.ParseMovementType(strings.TrimSpace(r.Type))
	if err != nil {
		return movements.Request{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid movement type")
	}

	executorID, err := uuid.Parse(strings.TrimSpace(r.ExecutorID))
	if err != nil {
		return movements.Request{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid executor_id")
	}

	req := movements.Request{
		Type:               movementType,
		AssetRef:           strings.TrimSpace(r.AssetRef),
		ExpectedReturnDate: r.ExpectedReturnDate,
		ReferenceDocument:  r.ReferenceDocument,
		ExecutorID:         executorID,
		Justification:      r.Justification,
	}

	if r.DestinationUnit != nil {
		unit, err := enums.ParseUnit(*r.DestinationUnit)
		if err != nil {
			return movements.Request{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid destination_unit")
		}
		req.DestinationUnit = &unit
	}

	if r.TemporaryCustodianID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*r.TemporaryCustodianID))
		if err != nil {
			return movements.Request{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid temporary_custodian_id")
		}
		req.TemporaryCustodianID = &id
	}

	if r.AuthorizerID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*r.AuthorizerID))
		if err != nil {
			return movements.Request{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid authorizer_id")
		}
		req.AuthorizerID = &id
	}

	return req, nil
}

// MovementCreate executes one ownership or custody transition.
func MovementCreate(svc movements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movement service unavailable"))
			return
		}

		var payload movementCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := payload.toRequest()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"movement": newMovementResponse(result.Movement),
			"asset":    result.Asset,
		})
	}
}
