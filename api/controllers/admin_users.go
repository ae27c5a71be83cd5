package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// UserDeactivator switches an account off.
type UserDeactivator interface {
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// AdminDeactivateUser stops an account from signing in again. Admins cannot deactivate themselves.
func AdminDeactivateUser(users UserDeactivator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if users == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user directory unavailable"))
			return
		}
		userID, err := validators.ParseUUIDParam(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor, ok := middleware.UserUUIDFromContext(r.Context()); ok && actor == userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "cannot deactivate your own account"))
			return
		}
		if err := users.Deactivate(r.Context(), userID); err != nil {
			if db.IsNotFound(err) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate user"))
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "target_user_id", userID.String()), "user deactivated")
		}
		responses.WriteNoContent(w)
	}
}
