package controllers

import (
	"net/http"

	"github.com/angelmondragon/motorshop-backend/api/middleware"
	"github.com/angelmondragon/motorshop-backend/api/responses"
)

// WhoAmI echoes the identity the auth middleware resolved for the caller.
// Shop tooling uses it to check a token before opening a work order.
func WhoAmI(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{
		"actor_id": middleware.ActorIDFromContext(r.Context()),
		"role":     middleware.RoleFromContext(r.Context()).String(),
	})
}
