package model

// Fixed per-category weights attached to every sample
const (
	SingleTotalScore   = 40
	MultipleTotalScore = 60
)

// CategorySample is one category's sampled questions and its score weight
type CategorySample struct {
	Questions  []QuestionRecord `json:"questions"`
	TotalScore int              `json:"totalScore"`
}

// QuestionSet is the payload returned by the question retrieval endpoint
type QuestionSet struct {
	SingleChoice   CategorySample `json:"singleChoice"`
	MultipleChoice CategorySample `json:"multipleChoice"`
}

// QuestionsResponse is the envelope of GET /api/questions
type QuestionsResponse struct {
	Success bool         `json:"success"`
	Data    *QuestionSet `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
}
