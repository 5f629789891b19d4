package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"timedquiz/internal/model"
)

// Sampler draws a question set of the requested size
type Sampler interface {
	GetQuestions(ctx context.Context, singleCount, multipleCount int) (*model.QuestionSet, error)
}

// QuestionHandler handles question retrieval
type QuestionHandler struct {
	sampler      Sampler
	defaultCount int
}

// NewQuestionHandler creates a new question handler. defaultCount applies to
// each category whose count is omitted from the query.
func NewQuestionHandler(sampler Sampler, defaultCount int) *QuestionHandler {
	return &QuestionHandler{sampler: sampler, defaultCount: defaultCount}
}

// GetQuestions handles GET /api/questions
//
//	@Summary	Sample a question set
//	@Param		singleCount		query		int	false	"single-answer questions to draw"
//	@Param		multipleCount	query		int	false	"multiple-answer questions to draw"
//	@Success	200				{object}	model.QuestionsResponse
//	@Failure	400				{object}	model.QuestionsResponse
//	@Failure	500				{object}	model.QuestionsResponse
//	@Router		/api/questions [get]
func (h *QuestionHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	singleCount, ok := h.count(r, "singleCount")
	if !ok {
		writeError(w, http.StatusBadRequest, "singleCount must be a non-negative integer")
		return
	}
	multipleCount, ok := h.count(r, "multipleCount")
	if !ok {
		writeError(w, http.StatusBadRequest, "multipleCount must be a non-negative integer")
		return
	}

	set, err := h.sampler.GetQuestions(r.Context(), singleCount, multipleCount)
	if err != nil {
		log.Printf("Failed to load questions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load questions")
		return
	}

	writeJSON(w, http.StatusOK, model.QuestionsResponse{Success: true, Data: set})
}

func (h *QuestionHandler) count(r *http.Request, param string) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return h.defaultCount, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
