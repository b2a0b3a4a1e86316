package handler

import (
	"net/http"

	"github.com/syntaxduel/syntaxduel/internal/ctxkeys"
)

type meResponse struct {
	User struct {
		accountView
		IsVerified    bool    `json:"is_verified"`
		OAuthProvider *string `json:"oauth_provider"`
	} `json:"user"`
}

type AccountHandler struct{}

func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

// Me returns the account resolved from the bearer token.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	if account == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var resp meResponse
	resp.User.accountView = newAccountView(account)
	resp.User.IsVerified = account.IsVerified
	resp.User.OAuthProvider = account.OAuthProvider

	writeJSON(w, http.StatusOK, resp)
}
