package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dfcarvalho/patrimonio-backend/api/responses"
	"github.com/dfcarvalho/patrimonio-backend/api/validators"
	"github.com/dfcarvalho/patrimonio-backend/internal/inventory"
	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
)

type eventOpenRequest struct {
	EventCode string `json:"event_code" validate:"required"`
	ScopeUnit *int   `json:"scope_unit"`
	OpenedBy  string `json:"opened_by" validate:"required"`
}

// InventoryEventOpen starts a counting campaign.
func InventoryEventOpen(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload eventOpenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		openedBy, err := uuid.Parse(strings.TrimSpace(payload.OpenedBy))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid opened_by"))
			return
		}

		input := inventory.OpenEventInput{
			EventCode: strings.TrimSpace(payload.EventCode),
			OpenedBy:  openedBy,
		}
		if payload.ScopeUnit != nil {
			unit, parseErr := enums.ParseUnit(*payload.ScopeUnit)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid scope_unit"))
				return
			}
			input.ScopeUnit = &unit
		}

		event, err := svc.OpenEvent(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newEventResponse(event))
	}
}

// InventoryEventGet returns one event with its counts summary.
func InventoryEventGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		eventID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.GetEvent(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newEventResponse(event))
	}
}

type eventActorRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
}

func eventTransition(svc inventory.Service, logg *logger.Logger,
	apply func(r *http.Request, eventID, actorID uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		eventID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload eventActorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, err := uuid.Parse(strings.TrimSpace(payload.ActorID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor_id"))
			return
		}

		result, err := apply(r, eventID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// InventoryEventClose closes an in-progress event, unfreezing regularization.
func InventoryEventClose(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return eventTransition(svc, logg, func(r *http.Request, eventID, actorID uuid.UUID) (any, error) {
		event, err := svc.CloseEvent(r.Context(), eventID, actorID)
		if err != nil {
			return nil, err
		}
		return newEventResponse(event), nil
	})
}

// InventoryEventCancel voids an in-progress event.
func InventoryEventCancel(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return eventTransition(svc, logg, func(r *http.Request, eventID, actorID uuid.UUID) (any, error) {
		event, err := svc.CancelEvent(r.Context(), eventID, actorID)
		if err != nil {
			return nil, err
		}
		return newEventResponse(event), nil
	})
}

type countsSyncRequest struct {
	FoundUnit     int                  `json:"found_unit" validate:"required"`
	FoundLocation string               `json:"found_location"`
	Items         []inventory.SyncItem `json:"items" validate:"required,min=1"`
}

// InventoryCountsSync ingests one batch of physical observations.
func InventoryCountsSync(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		eventID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload countsSyncRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		foundUnit, parseErr := enums.ParseUnit(payload.FoundUnit)
		if parseErr != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid found_unit"))
			return
		}

		for i := range payload.Items {
			payload.Items[i].ObservedAt = observedAtOrNow(payload.Items[i].ObservedAt)
		}

		summary, err := svc.Sync(r.Context(), inventory.SyncInput{
			EventID:       eventID,
			FoundUnit:     foundUnit,
			FoundLocation: validators.SanitizeString(payload.FoundLocation, 255),
			Items:         payload.Items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// InventoryCountsList returns an event's counts, filterable by occurrence.
func InventoryCountsList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		eventID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var occurrence *enums.OccurrenceType
		if raw := strings.TrimSpace(r.URL.Query().Get("occurrence")); raw != "" {
			candidate := enums.OccurrenceType(raw)
			if !candidate.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid occurrence filter"))
				return
			}
			occurrence = &candidate
		}

		counts, err := svc.ListCounts(r.Context(), eventID, occurrence)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCountResponses(counts))
	}
}

type regularizeRequest struct {
	Action            string  `json:"action" validate:"required"`
	ActorID           string  `json:"actor_id" validate:"required"`
	ReferenceDocument *string `json:"reference_document"`
	Notes             *string `json:"notes"`
}

// CountRegularize resolves one confirmed divergence.
func CountRegularize(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		countID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload regularizeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		action, parseErr := enums.ParseRegularizationAction(strings.TrimSpace(payload.Action))
		if parseErr != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid regularization action"))
			return
		}

		actorID, err := uuid.Parse(strings.TrimSpace(payload.ActorID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor_id"))
			return
		}

		result, err := svc.Regularize(r.Context(), inventory.RegularizeInput{
			CountID:           countID,
			Action:            action,
			ActorID:           actorID,
			ReferenceDocument: payload.ReferenceDocument,
			Notes:             payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := map[string]any{"count": newCountResponse(result.Count)}
		if result.Movement != nil {
			body["movement"] = newMovementResponse(result.Movement)
		}
		if result.Asset != nil {
			body["asset"] = result.Asset
		}
		responses.WriteSuccess(w, body)
	}
}

// observedAtOrNow defaults missing client timestamps to server time.
func observedAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
