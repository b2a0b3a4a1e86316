package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/syntaxduel/syntaxduel/internal/config"
	"github.com/syntaxduel/syntaxduel/internal/model"
	"github.com/syntaxduel/syntaxduel/internal/service"
	"github.com/syntaxduel/syntaxduel/internal/ui"
	"github.com/syntaxduel/syntaxduel/internal/ui/pages"
)

const registerSuccessMessage = "Check your email to confirm your account"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *registerRequest) fromForm(r *http.Request) {
	req.Name = r.PostFormValue("name")
	req.Email = r.PostFormValue("email")
	req.Password = r.PostFormValue("password")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) fromForm(r *http.Request) {
	req.Email = r.PostFormValue("email")
	req.Password = r.PostFormValue("password")
}

type accountView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    accountView `json:"user"`
}

type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// Register creates an unconfirmed account and emails a confirmation link.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, errMalformedBody.Error())
		return
	}

	_, err = h.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": registerSuccessMessage,
		})
	case service.IsValidationError(err):
		slog.Debug("registration rejected", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmailAlreadyExists):
		writeError(w, http.StatusBadRequest, service.ErrEmailAlreadyExists.Error())
	default:
		writeInternalError(w, r, err)
	}
}

// ConfirmEmail consumes the token from a confirmation link and renders an HTML result page.
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	_, err := h.authService.ConfirmEmail(r.Context(), token)
	if errors.Is(err, service.ErrInvalidConfirmation) {
		slog.Warn("email confirmation failed", "error", err)
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.ConfirmError(h.cfg.AppName, service.ErrInvalidConfirmation.Error()))
		return
	}
	if err != nil {
		slog.Error("email confirmation errored", "error", err)
		ui.RenderStatus(w, r, http.StatusInternalServerError, pages.ConfirmError(h.cfg.AppName, "Something went wrong. Please try again later."))
		return
	}

	ui.Render(w, r, pages.ConfirmSuccess(h.cfg.AppName, h.loginURL()))
}

// Login exchanges confirmed local credentials for a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, errMalformedBody.Error())
		return
	}

	account, err := h.authService.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrMissingFields):
		writeError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
		return
	case errors.Is(err, service.ErrAccountNotVerified), errors.Is(err, service.ErrInvalidCredentials):
		slog.Warn("password login failed", "error", err)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		writeInternalError(w, r, err)
		return
	}

	token, err := h.authService.IssueSession(account)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Token:   token,
		User:    newAccountView(account),
	})
}

func (h *AuthHandler) loginURL() string {
	return h.cfg.AppURL + h.cfg.LoginPath
}

func newAccountView(account *model.Account) accountView {
	return accountView{ID: account.ID, Name: account.Name, Email: account.Email}
}
