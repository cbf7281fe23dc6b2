// Package httpadapter exposes the chat and digest services over a JSON
// and server-sent-events API, plus optional static UI assets.
package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hempbis/hempbis-agent/internal/app/chat"
	"github.com/hempbis/hempbis-agent/internal/app/digest"
	"github.com/hempbis/hempbis-agent/internal/domain"
	"github.com/hempbis/hempbis-agent/internal/persona"
)

type Server struct {
	chat   *chat.Service
	digest *digest.Service
}

// NewServer wires the HTTP surface. staticDir may be empty to serve
// the API only.
func NewServer(chatSvc *chat.Service, digestSvc *digest.Service, staticDir string) http.Handler {
	s := &Server{chat: chatSvc, digest: digestSvc}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/personas", s.handleListPersonas)
	mux.HandleFunc("POST /api/personas/switch", s.handleSwitchPersona)

	mux.HandleFunc("GET /api/threads", s.handleListThreads)
	mux.HandleFunc("POST /api/threads", s.handleNewThread)
	mux.HandleFunc("POST /api/threads/select", s.handleSelectThreadByBody)
	mux.HandleFunc("GET /api/threads/{id}", s.handleSelectThread)
	mux.HandleFunc("PATCH /api/threads/{id}", s.handleRenameThread)
	mux.HandleFunc("DELETE /api/threads/{id}", s.handleDeleteThread)

	mux.HandleFunc("GET /api/timeline", s.handleTimeline)
	mux.HandleFunc("POST /api/messages", s.handleSendMessage)
	mux.HandleFunc("POST /api/suggestions", s.handleSuggestion)

	mux.HandleFunc("GET /api/generate-digest-now", s.handleDigest)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if staticDir != "" {
		mux.Handle("/", spaHandler(staticDir))
	}

	return chainMiddlewares(mux, withCORS, withLogging)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type personaResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Greeting    string   `json:"greeting"`
	Accent      string   `json:"accent"`
	Placeholder string   `json:"placeholder"`
	Starters    []string `json:"starters"`
}

// threadSummaryResponse is sidebar metadata. MessageCount is advisory:
// stores that list metadata only (firestore) report 0 here; the full
// message list comes from selecting the thread.
type threadSummaryResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	PersonaID     string    `json:"persona_id"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	MessageCount  int       `json:"message_count,omitempty"`
}

type timelineResponse struct {
	ThreadID  string            `json:"thread_id"`
	PersonaID string            `json:"persona_id"`
	Messages  []*domain.Message `json:"messages"`
}

type newThreadRequest struct {
	PersonaID string `json:"persona_id,omitempty"`
}

type renameThreadRequest struct {
	Title string `json:"title"`
}

type switchPersonaRequest struct {
	PersonaID string `json:"persona_id"`
}

type sendMessageRequest struct {
	Text string          `json:"text"`
	File *fileAttachment `json:"file,omitempty"`
}

type fileAttachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type suggestionRequest struct {
	Text string `json:"text"`
}

// turnEventDTO is one server-sent event of a streaming turn.
type turnEventDTO struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ─────────────────────────────────────────────
// Persona handlers
// ─────────────────────────────────────────────

func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	all := persona.All()
	out := make([]personaResponse, 0, len(all))
	for _, p := range all {
		out = append(out, personaResponse{
			ID:          string(p.ID),
			Name:        p.Name,
			Description: p.Description,
			Greeting:    p.Greeting,
			Accent:      p.Accent,
			Placeholder: p.Placeholder,
			Starters:    p.Starters,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"personas": out})
}

func (s *Server) handleSwitchPersona(w http.ResponseWriter, r *http.Request) {
	var req switchPersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.PersonaID == "" {
		badRequest(w, "persona_id is required")
		return
	}
	if err := s.chat.SwitchPersona(domain.PersonaID(req.PersonaID), nil); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.timelineDTO())
}

// ─────────────────────────────────────────────
// Thread handlers
// ─────────────────────────────────────────────

func (s *Server) handleListThreads(w http.ResponseWriter, _ *http.Request) {
	threads, err := s.chat.Threads()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]threadSummaryResponse, 0, len(threads))
	for _, t := range threads {
		out = append(out, threadSummaryResponse{
			ID:            string(t.ID),
			Title:         t.Title,
			PersonaID:     string(t.PersonaID),
			CreatedAt:     t.CreatedAt,
			LastUpdatedAt: t.LastUpdatedAt,
			MessageCount:  len(t.Messages),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": out})
}

func (s *Server) handleNewThread(w http.ResponseWriter, r *http.Request) {
	var req newThreadRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}
	messages, err := s.chat.StartNewThread(domain.PersonaID(req.PersonaID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, timelineResponse{
		ThreadID:  string(s.chat.ActiveThreadID()),
		PersonaID: string(s.chat.ActivePersona().ID),
		Messages:  messages,
	})
}

func (s *Server) handleSelectThreadByBody(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ThreadID string `json:"thread_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.ThreadID == "" {
		badRequest(w, "thread_id is required")
		return
	}
	s.selectThread(w, domain.ThreadID(req.ThreadID))
}

func (s *Server) handleSelectThread(w http.ResponseWriter, r *http.Request) {
	s.selectThread(w, domain.ThreadID(r.PathValue("id")))
}

func (s *Server) selectThread(w http.ResponseWriter, id domain.ThreadID) {
	messages, err := s.chat.SelectThread(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timelineResponse{
		ThreadID:  string(id),
		PersonaID: string(s.chat.ActivePersona().ID),
		Messages:  messages,
	})
}

func (s *Server) handleRenameThread(w http.ResponseWriter, r *http.Request) {
	var req renameThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		badRequest(w, "title is required")
		return
	}
	id := domain.ThreadID(r.PathValue("id"))
	if err := s.chat.RenameThread(id, req.Title); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": string(id), "title": strings.TrimSpace(req.Title)})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id := domain.ThreadID(r.PathValue("id"))
	if err := s.chat.DeleteThread(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTimeline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.timelineDTO())
}

func (s *Server) timelineDTO() timelineResponse {
	return timelineResponse{
		ThreadID:  string(s.chat.ActiveThreadID()),
		PersonaID: string(s.chat.ActivePersona().ID),
		Messages:  s.chat.Timeline(),
	}
}

// ─────────────────────────────────────────────
// Streaming turn handlers
// ─────────────────────────────────────────────

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.File == nil {
		badRequest(w, "text or file is required")
		return
	}
	var file *domain.FileData
	if req.File != nil {
		file = &domain.FileData{
			Name:     req.File.Name,
			MIMEType: req.File.MIMEType,
			Data:     req.File.Data,
		}
	}

	stream := newEventStream(w)
	err := s.chat.SendMessage(r.Context(), req.Text, file, stream.sink)
	stream.finish(w, err)
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	stream := newEventStream(w)
	err := s.chat.HandleSuggestion(r.Context(), req.Text, stream.sink)
	stream.finish(w, err)
}

// eventStream lazily switches the response into SSE mode on the first
// event, so turns rejected before streaming still get a JSON status.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newEventStream(w http.ResponseWriter) *eventStream {
	flusher, _ := w.(http.Flusher)
	return &eventStream{w: w, flusher: flusher}
}

func (es *eventStream) sink(ev chat.TurnEvent) {
	if !es.started {
		es.started = true
		es.w.Header().Set("Content-Type", "text/event-stream")
		es.w.Header().Set("Cache-Control", "no-cache")
		es.w.Header().Set("Connection", "keep-alive")
		es.w.WriteHeader(http.StatusOK)
	}
	dto := turnEventDTO{Type: ev.Type, Message: ev.Message}
	if ev.Err != nil {
		dto.Error = ev.Err.Error()
	}
	payload, err := json.Marshal(dto)
	if err != nil {
		return
	}
	es.w.Write([]byte("data: "))
	es.w.Write(payload)
	es.w.Write([]byte("\n\n"))
	if es.flusher != nil {
		es.flusher.Flush()
	}
}

// finish closes out the request: a turn that never streamed reports its
// error as plain JSON, a streamed one ends the event stream.
func (es *eventStream) finish(w http.ResponseWriter, err error) {
	if !es.started {
		if err != nil {
			writeError(w, err)
			return
		}
		// Nothing streamed and no error: a persona switch with no turn.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err != nil {
		es.sink(chat.TurnEvent{Type: "error", Err: err})
		es.sink(chat.TurnEvent{Type: "done"})
	}
}

// ─────────────────────────────────────────────
// Digest handler
// ─────────────────────────────────────────────

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	d, err := s.digest.Generate(r.Context(), r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ─────────────────────────────────────────────
// Static UI
// ─────────────────────────────────────────────

// spaHandler serves files from dir, falling back to index.html for
// client-side routes.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
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

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrThreadNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "thread not found"})
	case errors.Is(err, domain.ErrTurnInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a turn is already in progress"})
	case errors.Is(err, domain.ErrUnknownPersona):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown persona"})
	case errors.Is(err, domain.ErrNoPriorUserMessage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no prior user message to forward"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
