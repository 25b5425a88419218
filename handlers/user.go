package handlers

import (
	"net/http"
	"time"

	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/services"
	"github.com/ray-remotestate/canteen/utils"
)

const refreshCookie = "refresh_token"

type authResponse struct {
	UserID      string        `json:"user_id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Roles       []models.Role `json:"roles"`
	AccessToken string        `json:"access_token"`
	Message     string        `json:"message,omitempty"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, tokens, err := h.Users.Register(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	utils.RespondJSON(w, http.StatusCreated, authResponse{
		UserID:      user.ID.String(),
		Name:        user.Name,
		Email:       user.Email,
		Roles:       user.Roles,
		AccessToken: tokens.AccessToken,
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, tokens, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	utils.RespondJSON(w, http.StatusOK, authResponse{
		UserID:      user.ID.String(),
		Name:        user.Name,
		Email:       user.Email,
		Roles:       user.Roles,
		AccessToken: tokens.AccessToken,
		Message:     "Successfully logged in",
	})
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "refresh token missing")
		return
	}

	tokens, err := h.Users.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"access_token": tokens.AccessToken,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully logged out",
	})
}

func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  time.Now().Add(utils.RefreshTokenTTL),
	})
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context(), principal(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	utils.RespondJSON(w, http.StatusOK, users)
}

func (h *Handlers) ArchiveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.Users.Archive(r.Context(), principal(r), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
