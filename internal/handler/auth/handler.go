package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Satwikmbadiger/EmoTutor/internal/auth"
	"github.com/Satwikmbadiger/EmoTutor/pkg/utils"
)

// Handler 认证相关的HTTP处理器
type Handler struct {
	provider auth.Provider
	authCtx  *auth.Context
}

// New 创建认证处理器
func New(provider auth.Provider, authCtx *auth.Context) *Handler {
	return &Handler{provider: provider, authCtx: authCtx}
}

// RegisterRoutes 注册认证相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/auth/signin", h.handleSignIn)
	r.Post("/auth/signout", h.handleSignOut)
	r.Get("/auth/me", h.handleMe)
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignUp 注册账号并建立会话身份
func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := h.provider.SignUp(r.Context(), payload.Email, payload.Password)
	if err != nil {
		utils.RespondError(w, signUpStatus(err), err.Error())
		return
	}

	h.authCtx.Establish(identity)
	utils.RespondJSON(w, http.StatusCreated, identity)
}

// handleSignIn 登录并建立会话身份
func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := h.provider.SignIn(r.Context(), payload.Email, payload.Password)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	h.authCtx.Establish(identity)
	utils.RespondJSON(w, http.StatusOK, identity)
}

// handleSignOut 注销当前身份
func (h *Handler) handleSignOut(w http.ResponseWriter, _ *http.Request) {
	h.authCtx.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// handleMe 返回当前身份
func (h *Handler) handleMe(w http.ResponseWriter, _ *http.Request) {
	identity, ok := h.authCtx.Current()
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, auth.ErrNoIdentity.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, identity)
}

func signUpStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
