package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/PabloGalante/taskpilot/internal/app/conversation"
	"github.com/PabloGalante/taskpilot/internal/app/tasks"
	"github.com/PabloGalante/taskpilot/internal/domain"
	"github.com/PabloGalante/taskpilot/internal/observability"
)

// maxBodyBytes bounds request bodies; chat transcripts are resent every turn.
const maxBodyBytes = 1 << 20

type Server struct {
	chat  *conversation.Service
	tasks *tasks.Service
}

func NewServer(chat *conversation.Service, taskSvc *tasks.Service) http.Handler {
	s := &Server{chat: chat, tasks: taskSvc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /chat → answer one turn (POST)
	mux.HandleFunc("/chat", s.handleChat)

	// /tasks                → GET: list open tasks
	// /tasks/{id}           → GET: get one task
	// /tasks/{id}/status    → POST: change status
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskWithID)

	return chainMiddlewares(mux, withLogging, withCORS, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	UserID         string       `json:"user_id"`
	ConversationID string       `json:"conversationId,omitempty"`
	Messages       []messageDTO `json:"messages"`
	State          string       `json:"state,omitempty"`
}

type chatResponse struct {
	Text            string         `json:"text"`
	CommandExecuted string         `json:"commandExecuted,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	DialogueState   string         `json:"dialogueState"`
	State           string         `json:"state,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
	Retryable bool   `json:"retryable"`
}

type taskListResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}

type setStatusRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSendChat(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTasks(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /tasks/{id} or /tasks/{id}/status
func (s *Server) handleTaskWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tasks/")
	parts := strings.Split(path, "/")
	id := parts[0]

	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetTask(w, r, domain.TaskID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "status" {
		switch r.Method {
		case http.MethodPost:
			s.handleSetStatus(w, r, domain.TaskID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	conv := make(domain.Conversation, 0, len(req.Messages))
	for _, m := range req.Messages {
		conv = append(conv, domain.Message{
			Role:    domain.Role(strings.ToLower(strings.TrimSpace(m.Role))),
			Content: m.Content,
		})
	}
	if err := conv.Validate(); err != nil {
		badRequest(w, err.Error())
		return
	}

	out, err := s.chat.Respond(r.Context(), conversation.RespondInput{
		UserID:         domain.UserID(req.UserID),
		ConversationID: domain.ConversationID(req.ConversationID),
		Messages:       conv,
		StateToken:     req.State,
	})
	if err != nil {
		var ue *conversation.UpstreamError
		if errors.As(err, &ue) {
			upstreamError(w, ue)
			return
		}
		observability.LoggerFromContext(r.Context()).Error("chat turn failed", "error", err)
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Text:            out.Text,
		CommandExecuted: string(out.Command),
		Data:            out.Data,
		DialogueState:   string(out.State),
		State:           out.StateToken,
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.tasks.ListOpen(r.Context(), domain.UserID(userID), limit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Tasks: list})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, id domain.TaskID) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}

	task, err := s.tasks.Get(r.Context(), domain.UserID(userID), id)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request, id domain.TaskID) {
	var req setStatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	task, err := s.tasks.SetStatus(r.Context(), domain.UserID(req.UserID), id, req.Status)
	switch {
	case errors.Is(err, tasks.ErrInvalidStatus):
		badRequest(w, err.Error())
		return
	case errors.Is(err, domain.ErrTaskNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:     "internal server error",
		ErrorType: string(conversation.ErrorUnknown),
		Retryable: true,
	})
}

var upstreamStatus = map[conversation.ErrorType]int{
	conversation.ErrorQuotaExceeded:      http.StatusTooManyRequests,
	conversation.ErrorServiceUnavailable: http.StatusServiceUnavailable,
	conversation.ErrorNetwork:            http.StatusBadGateway,
	conversation.ErrorUnknown:            http.StatusInternalServerError,
}

func upstreamError(w http.ResponseWriter, ue *conversation.UpstreamError) {
	status, ok := upstreamStatus[ue.Type]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{
		Error:     ue.Message,
		ErrorType: string(ue.Type),
		Retryable: ue.Retryable,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
