package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dfcarvalho/patrimonio-backend/api/responses"
	"github.com/dfcarvalho/patrimonio-backend/internal/assets"
	pkgerrors "github.com/dfcarvalho/patrimonio-backend/pkg/errors"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
)

// AssetGet resolves one asset by id or tag number.
func AssetGet(repo assets.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "asset repository unavailable"))
			return
		}

		asset, err := repo.FindByRef(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssetResponse(asset))
	}
}

// AssetMovements returns the asset's movement records, newest first.
func AssetMovements(repo assets.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "asset repository unavailable"))
			return
		}

		asset, err := repo.FindByRef(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := repo.MovementsByAsset(r.Context(), asset.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"asset":     newAssetResponse(asset),
			"movements": newMovementResponses(history),
		})
	}
}
