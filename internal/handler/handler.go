// Package handler exposes the study-coach pipeline as a JSON API.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AnchitSingh/AI-Study-Coach/internal/airesp"
	"github.com/AnchitSingh/AI-Study-Coach/internal/llm/prompts"
	"github.com/AnchitSingh/AI-Study-Coach/internal/model"
	"github.com/AnchitSingh/AI-Study-Coach/internal/pdfsource"
	"github.com/AnchitSingh/AI-Study-Coach/internal/source"
	"github.com/AnchitSingh/AI-Study-Coach/internal/store"
)

// Generator is the slice of the LLM client the handlers need.
type Generator interface {
	GenerateQuizRaw(ctx context.Context, req prompts.QuizRequest) (string, error)
	GenerateStory(ctx context.Context, src model.FinalizedSource, storyStyle string) (string, error)
	EvaluateRaw(ctx context.Context, q model.Question, userAnswer string) (string, error)
	GenerateFeedback(ctx context.Context, title, subject string, stats map[string]any) (string, error)
	RepairJSON(ctx context.Context, candidate string) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	llm       Generator
	finalizer *source.Finalizer
}

// New creates a new Handler.
func New(s *store.Store, g Generator, f *source.Finalizer) *Handler {
	return &Handler{store: s, llm: g, finalizer: f}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/health", h.handleHealth)
	r.Post("/api/generate-quiz", h.handleGenerateQuiz)
	r.Post("/api/get-story", h.handleGetStory)
	r.Post("/api/evaluate-subjective", h.handleEvaluateSubjective)
	r.Post("/api/get-feedback", h.handleGetFeedback)
	r.Post("/api/extract-pdf", h.handleExtractPDF)
	r.Get("/api/quizzes", h.handleListQuizzes)
	r.Get("/api/quizzes/{quizID}", h.handleGetQuiz)
	r.Get("/api/quizzes/{quizID}/source", h.handleGetQuizSource)
	r.Delete("/api/quizzes/{quizID}", h.handleDeleteQuiz)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.QuizCount()
	if err != nil {
		slog.Error("quiz count", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "quizzes": count})
}

// generateQuizRequest is the body of POST /api/generate-quiz.
type generateQuizRequest struct {
	SourceType    string          `json:"sourceType"`
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	Text          string          `json:"text"`
	Topic         string          `json:"topic"`
	QuestionCount int             `json:"questionCount"`
	QuestionTypes []string        `json:"questionTypes"`
	Config        json.RawMessage `json:"config"`
	Meta          map[string]any  `json:"meta"`
}

func (h *Handler) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req generateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorQuiz("invalid request body: "+err.Error()))
		return
	}

	cfg := decodeConfig(req.Config)

	src, err := h.finalizeRequest(r.Context(), req, cfg)
	if err != nil {
		writeJSON(w, http.StatusOK, model.ErrorQuiz(err.Error()))
		return
	}

	raw, err := h.llm.GenerateQuizRaw(r.Context(), prompts.QuizRequest{
		Source:        src,
		QuestionCount: req.QuestionCount,
		Difficulty:    cfg.Difficulty,
		QuestionTypes: req.QuestionTypes,
	})
	if err != nil {
		slog.Error("quiz generation failed", "error", err)
		writeJSON(w, http.StatusOK, model.ErrorQuiz("quiz generation failed: "+err.Error()))
		return
	}

	parsed, err := airesp.ParseWithRepair(r.Context(), raw, airesp.ParseOptions{
		Repair: h.llm.RepairJSON,
	})
	if err != nil {
		slog.Error("quiz response unparseable", "error", err)
		writeJSON(w, http.StatusOK, model.ErrorQuiz("could not parse the generated quiz"))
		return
	}

	if m, ok := parsed.(map[string]any); ok {
		parsed = airesp.TransformQuizResponse(m)
	}

	quiz := airesp.NormalizeQuiz(parsed)
	if quiz.Error == "" {
		// The request's validated config wins over whatever the model echoed.
		quiz.Config = cfg
		if quiz.Title == "Untitled Quiz" && src.Title != "" {
			quiz.Title = src.Title
		}
		if quiz.Subject == "General" && cfg.Subject != "" {
			quiz.Subject = cfg.Subject
		}
		if err := h.store.SaveQuiz(quiz); err != nil {
			slog.Error("save quiz", "id", quiz.ID, "error", err)
		}
		// Keyed by quiz ID so the material behind a quiz can be re-fetched.
		if err := h.store.SaveSource(quiz.ID, src); err != nil {
			slog.Error("save source", "id", quiz.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, quiz)
}

// finalizeRequest runs the content pipeline for a quiz request. A bare topic
// with no source text skips summarization entirely.
func (h *Handler) finalizeRequest(ctx context.Context, req generateQuizRequest, cfg model.QuizConfig) (model.FinalizedSource, error) {
	if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.Topic) == "" {
		return model.FinalizedSource{}, fmt.Errorf("either text or topic is required")
	}

	fr := source.Request{
		SourceType:    model.SourceType(strings.ToUpper(req.SourceType)),
		Title:         req.Title,
		URL:           req.URL,
		RawText:       req.Text,
		Meta:          req.Meta,
		QuizConfig:    cfg,
		Topic:         req.Topic,
		QuestionTypes: req.QuestionTypes,
	}
	if fr.SourceType == "" {
		fr.SourceType = model.SourceManual
	}
	if fr.Title == "" {
		fr.Title = req.Topic
	}

	if strings.TrimSpace(req.Text) == "" {
		fr.RawText = req.Topic
		return h.finalizer.FinalizeTopic(fr), nil
	}
	return h.finalizer.Finalize(ctx, fr)
}

// storyRequest is the body of POST /api/get-story.
type storyRequest struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	StoryStyle string `json:"storyStyle"`
}

func (h *Handler) handleGetStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Text) == "" {
		httpError(w, http.StatusBadRequest, "either title or text is required")
		return
	}

	src := h.finalizer.FinalizeTopic(source.Request{
		SourceType: model.SourceManual,
		Title:      req.Title,
		RawText:    req.Text,
	})

	story, err := h.llm.GenerateStory(r.Context(), src, req.StoryStyle)
	if err != nil {
		slog.Error("story generation failed", "error", err)
		httpError(w, http.StatusBadGateway, "story generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"story": story})
}

// evaluateRequest is the body of POST /api/evaluate-subjective.
type evaluateRequest struct {
	Question   model.Question `json:"question"`
	UserAnswer string         `json:"userAnswer"`
}

// evaluateResponse mirrors the grader's JSON verdict.
type evaluateResponse struct {
	IsCorrect   bool   `json:"isCorrect"`
	Feedback    string `json:"feedback"`
	Explanation string `json:"explanation"`
}

func (h *Handler) handleEvaluateSubjective(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question.Question) == "" {
		httpError(w, http.StatusBadRequest, "question is required")
		return
	}

	raw, err := h.llm.EvaluateRaw(r.Context(), req.Question, req.UserAnswer)
	if err != nil {
		slog.Error("evaluation failed", "error", err)
		httpError(w, http.StatusBadGateway, "evaluation failed")
		return
	}

	parsed, err := airesp.ParseWithRepair(r.Context(), raw, airesp.ParseOptions{
		Repair: h.llm.RepairJSON,
	})
	if err != nil {
		// An unparseable verdict is never counted as correct; the student
		// is pointed at the explanation instead.
		writeJSON(w, http.StatusOK, evaluateResponse{
			IsCorrect: false,
			Feedback:  "Your answer could not be evaluated automatically. Please compare it with the explanation.",
		})
		return
	}

	var resp evaluateResponse
	if body, err := json.Marshal(parsed); err == nil {
		_ = json.Unmarshal(body, &resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// feedbackRequest is the body of POST /api/get-feedback.
type feedbackRequest struct {
	Title   string         `json:"title"`
	Subject string         `json:"subject"`
	Stats   map[string]any `json:"stats"`
}

func (h *Handler) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Stats) == 0 {
		httpError(w, http.StatusBadRequest, "stats are required")
		return
	}

	feedback, err := h.llm.GenerateFeedback(r.Context(), req.Title, req.Subject, req.Stats)
	if err != nil {
		slog.Error("feedback generation failed", "error", err)
		httpError(w, http.StatusBadGateway, "feedback generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"feedback": feedback})
}

func (h *Handler) handleExtractPDF(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	extracted, err := pdfsource.ExtractFromReader(file)
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":         extracted.Text,
		"pageCount":    extracted.PageCount,
		"skippedPages": extracted.SkippedPages,
	})
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.store.ListQuizzes()
	if err != nil {
		slog.Error("list quizzes", "error", err)
		httpError(w, http.StatusInternalServerError, "could not list quizzes")
		return
	}
	if quizzes == nil {
		quizzes = []store.QuizSummary{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quizID")
	quiz, err := h.store.GetQuiz(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpError(w, http.StatusNotFound, "quiz not found")
			return
		}
		slog.Error("get quiz", "id", id, "error", err)
		httpError(w, http.StatusInternalServerError, "could not load quiz")
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handleGetQuizSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quizID")
	src, err := h.store.GetSource(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpError(w, http.StatusNotFound, "source not found")
			return
		}
		slog.Error("get source", "id", id, "error", err)
		httpError(w, http.StatusInternalServerError, "could not load source")
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quizID")
	if err := h.store.DeleteQuiz(id); err != nil {
		slog.Error("delete quiz", "id", id, "error", err)
		httpError(w, http.StatusInternalServerError, "could not delete quiz")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func decodeConfig(raw json.RawMessage) model.QuizConfig {
	if len(raw) == 0 {
		return model.DefaultQuizConfig()
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.DefaultQuizConfig()
	}
	return airesp.NormalizeConfig(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
