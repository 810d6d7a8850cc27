package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Satwikmbadiger/EmoTutor/internal/auth"
	"github.com/Satwikmbadiger/EmoTutor/internal/service/session"
	"github.com/Satwikmbadiger/EmoTutor/internal/store"
	"github.com/Satwikmbadiger/EmoTutor/pkg/utils"
)

// maxUploadBytes caps one document upload.
const maxUploadBytes = 32 << 20

// Handler 聊天视图的HTTP处理器，薄封装会话控制器。
type Handler struct {
	controller *session.Controller
}

// New 创建聊天处理器
func New(controller *session.Controller) *Handler {
	return &Handler{controller: controller}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/state", h.handleState)
	r.Get("/chat/stream", h.handleStream)
	r.Post("/chat/ask", h.handleAsk)
	r.Post("/chat/upload", h.handleUpload)
	r.Post("/chat/new", h.handleNewChat)
	r.Post("/chat/select", h.handleSelect)
	r.Delete("/chat/history/{recordID}", h.handleDelete)
	r.Post("/chat/clear", h.handleClearAll)
}

// handleState 返回当前会话与历史的完整视图
func (h *Handler) handleState(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.controller.View())
}

// handleAsk 提交一个问题；同一时间只允许一个在途请求
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.controller.Ask(r.Context(), payload.Question)
	if err != nil {
		utils.RespondError(w, askStatus(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleUpload 上传一个PDF文档给教学后端
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		utils.RespondError(w, http.StatusBadRequest, "only PDF files are supported")
		return
	}

	if err := h.controller.Upload(r.Context(), header.Filename, file); err != nil {
		if errors.Is(err, session.ErrUploadInFlight) {
			utils.RespondError(w, http.StatusConflict, err.Error())
			return
		}
		utils.RespondError(w, http.StatusBadGateway, "Upload failed: "+err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "PDF uploaded and processed!"})
}

// handleNewChat 开启新会话，清空当前选择
func (h *Handler) handleNewChat(w http.ResponseWriter, _ *http.Request) {
	h.controller.NewChat()
	utils.RespondJSON(w, http.StatusOK, h.controller.View())
}

// handleSelect 选中一条历史记录单独展示
func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.controller.Select(payload.ID); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.controller.View())
}

// handleDelete 删除一条历史记录
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")

	if err := h.controller.Delete(r.Context(), recordID); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			status = http.StatusNotFound
		case errors.Is(err, auth.ErrNoIdentity):
			status = http.StatusUnauthorized
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearAll 清空当前用户的全部历史，必须显式确认
func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Confirm bool `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	removed, err := h.controller.ClearAll(r.Context(), payload.Confirm)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrConfirmRequired):
			status = http.StatusBadRequest
		case errors.Is(err, auth.ErrNoIdentity):
			status = http.StatusUnauthorized
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handleStream 通过SSE推送会话与历史的最新视图
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	updates := make(chan struct{}, 1)
	unsubscribe := h.controller.OnChange(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ctx := r.Context()
	log.Printf("[sse] opening chat state stream")
	utils.SendSSEChunk(w, flusher, h.controller.View())

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing chat state stream")
			return
		case <-updates:
			utils.SendSSEChunk(w, flusher, h.controller.View())
		}
	}
}

func askStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrAskInFlight):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNoIdentity):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
