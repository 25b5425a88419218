package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/canteen/authz"
	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/services"
	"github.com/ray-remotestate/canteen/utils"
	"github.com/ray-remotestate/canteen/workflow"
)

type Handlers struct {
	Users  *services.UserService
	Menu   *services.MenuService
	Carts  *services.CartService
	Orders *services.OrderService
	Log    logrus.FieldLogger

	// SecureCookies marks the refresh cookie Secure. Off only for local http.
	SecureCookies bool
}

// respondErr maps domain errors to HTTP statuses. Anything unrecognised is
// logged and reported as a bare 500.
func (h *Handlers) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, authz.ErrUnauthenticated), errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, authz.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrMenuItemNotFound),
		errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, models.ErrStatusConflict),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrItemUnavailable),
		errors.Is(err, models.ErrEmailTaken):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		utils.RespondError(w, status, "internal server error")
		return
	}
	utils.RespondError(w, status, err.Error())
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	return id, err == nil
}

func principal(r *http.Request) authz.Principal {
	return authz.FromContext(r.Context())
}
