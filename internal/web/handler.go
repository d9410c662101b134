package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/iamvkosarev/ye-chat/internal/model"
	"github.com/iamvkosarev/ye-chat/internal/usecase"
	"go.uber.org/zap"
)

const (
	SessionCookieName = "ye_session"

	messageServerError = "Something wrong with me. Try later"
	maxBodyBytes       = 1 << 20
)

//go:embed templates/chat.html
var templatesFS embed.FS

var chatTemplate = template.Must(template.ParseFS(templatesFS, "templates/chat.html"))

type ChatHandler struct {
	chat         *usecase.ChatUsecase
	logger       *zap.Logger
	secureCookie bool
}

func NewChatHandler(chat *usecase.ChatUsecase, secureCookie bool, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		chat:         chat,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

type pageData struct {
	Persona  model.Persona
	Messages []model.Message
	Notice   string
}

type messageResponse struct {
	Role    model.MessageRole `json:"role"`
	Content string            `json:"content"`
}

type transcriptResponse struct {
	ID       string            `json:"id"`
	Messages []messageResponse `json:"messages"`
	Error    string            `json:"error,omitempty"`
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	sessionKey := h.session(w, r)
	transcript, err := h.chat.Initialize(r.Context(), sessionKey)
	if err != nil {
		h.logger.Error("failed to initialize session", zap.String("session", sessionKey), zap.Error(err))
		http.Error(w, messageServerError, http.StatusInternalServerError)
		return
	}
	h.renderPage(w, transcript, "")
}

func (h *ChatHandler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	sessionKey := h.session(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if _, err := h.chat.Initialize(r.Context(), sessionKey); err != nil {
		h.logger.Error("failed to initialize session", zap.String("session", sessionKey), zap.Error(err))
		http.Error(w, messageServerError, http.StatusInternalServerError)
		return
	}

	transcript, err := h.chat.Submit(r.Context(), sessionKey, r.PostForm.Get("prompt"))
	if err != nil {
		var genErr *usecase.GenerationError
		if errors.As(err, &genErr) {
			h.renderPage(w, transcript, genErr.Notice())
			return
		}
		h.logger.Error("failed to submit message", zap.String("session", sessionKey), zap.Error(err))
		http.Error(w, messageServerError, http.StatusInternalServerError)
		return
	}
	h.renderPage(w, transcript, "")
}

func (h *ChatHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sessionKey := h.session(w, r)
	if _, err := h.chat.Reset(r.Context(), sessionKey); err != nil {
		h.logger.Error("failed to reset session", zap.String("session", sessionKey), zap.Error(err))
		http.Error(w, messageServerError, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ChatHandler) HandleGetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionKey := h.session(w, r)
	transcript, err := h.chat.Initialize(r.Context(), sessionKey)
	if err != nil {
		h.logger.Error("failed to initialize session", zap.String("session", sessionKey), zap.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, transcriptResponse{Error: messageServerError})
		return
	}
	h.respondJSON(w, http.StatusOK, newTranscriptResponse(transcript, ""))
}

func (h *ChatHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	sessionKey := h.session(w, r)
	var req postMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.respondJSON(w, http.StatusBadRequest, transcriptResponse{Error: "Invalid request body"})
		return
	}
	if _, err := h.chat.Initialize(r.Context(), sessionKey); err != nil {
		h.logger.Error("failed to initialize session", zap.String("session", sessionKey), zap.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, transcriptResponse{Error: messageServerError})
		return
	}

	transcript, err := h.chat.Submit(r.Context(), sessionKey, req.Content)
	if err != nil {
		var genErr *usecase.GenerationError
		if errors.As(err, &genErr) {
			h.respondJSON(w, http.StatusBadGateway, newTranscriptResponse(transcript, genErr.Notice()))
			return
		}
		h.logger.Error("failed to submit message", zap.String("session", sessionKey), zap.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, transcriptResponse{Error: messageServerError})
		return
	}
	h.respondJSON(w, http.StatusOK, newTranscriptResponse(transcript, ""))
}

// session returns the session key bound to the request cookie, issuing a new
// cookie when the request has none or carries a malformed one.
func (h *ChatHandler) session(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return getSessionKey(id)
		}
	}
	id := uuid.New()
	http.SetCookie(
		w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    id.String(),
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		},
	)
	return getSessionKey(id)
}

func (h *ChatHandler) renderPage(w http.ResponseWriter, transcript model.Transcript, notice string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := pageData{
		Persona:  h.chat.Persona(),
		Messages: transcript.Messages,
		Notice:   notice,
	}
	if err := chatTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render chat page", zap.Error(err))
	}
}

func (h *ChatHandler) respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func newTranscriptResponse(transcript model.Transcript, notice string) transcriptResponse {
	messages := make([]messageResponse, 0, len(transcript.Messages))
	for _, msg := range transcript.Messages {
		messages = append(
			messages, messageResponse{
				Role:    msg.Role,
				Content: msg.Content,
			},
		)
	}
	return transcriptResponse{
		ID:       transcript.ID.String(),
		Messages: messages,
		Error:    notice,
	}
}

func getSessionKey(id uuid.UUID) string {
	return "web_" + id.String()
}
