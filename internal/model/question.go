package model

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Category defines the kind of question
type Category string

const (
	CategorySingle   Category = "single"   // Exactly one correct option
	CategoryMultiple Category = "multiple" // One or more correct options
)

// Categories lists every category in presentation order
var Categories = []Category{CategorySingle, CategoryMultiple}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return c == CategorySingle || c == CategoryMultiple
}

// AnswerKey is the canonical answer encoded as a letter set, e.g. "AC".
// Bank files written by the text converter store multiple answers as a JSON
// array of letters; both forms decode into the same key.
type AnswerKey string

// UnmarshalJSON accepts either "AC" or ["A","C"]
func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = AnswerKey(s)
		return nil
	}
	var letters []string
	if err := json.Unmarshal(data, &letters); err != nil {
		return errors.Wrap(err, "answer must be a string or an array of letters")
	}
	*k = AnswerKey(strings.Join(letters, ""))
	return nil
}

// Letters returns the answer letters with whitespace removed, in stored order
func (k AnswerKey) Letters() []string {
	var letters []string
	for _, r := range string(k) {
		if unicode.IsSpace(r) {
			continue
		}
		letters = append(letters, string(r))
	}
	return letters
}

// QuestionRecord is an immutable question from the static bank
type QuestionRecord struct {
	ID       int       `json:"id" bson:"id"`
	Type     Category  `json:"type" bson:"type"`
	Question string    `json:"question" bson:"question"`
	Options  []string  `json:"options" bson:"options"`
	Answer   AnswerKey `json:"answer" bson:"answer"`
}

// Clone returns a copy that shares no slices with r
func (r QuestionRecord) Clone() QuestionRecord {
	c := r
	c.Options = append([]string(nil), r.Options...)
	return c
}

// DisplayOption is an option labelled with a letter derived from its position
type DisplayOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// OptionLetter returns the display letter for the option at index (0 → "A")
func OptionLetter(index int) string {
	return string(rune(65 + index))
}

// AnsweredQuestion is a sampled question formatted for presentation
type AnsweredQuestion struct {
	ID       int             `json:"id"`
	Type     Category        `json:"type"`
	Question string          `json:"question"`
	Options  []DisplayOption `json:"options"`
	Answer   AnswerKey       `json:"answer"`
}

// Key returns the selection key "type-id" for this question
func (q *AnsweredQuestion) Key() string {
	return QuestionKey(q.Type, q.ID)
}

// HasOption reports whether id is one of the question's option letters
func (q *AnsweredQuestion) HasOption(id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// CorrectAnswerText joins the texts of the correct options with newlines
func (q *AnsweredQuestion) CorrectAnswerText() string {
	correct := make(map[string]bool)
	for _, l := range q.Answer.Letters() {
		correct[l] = true
	}
	var texts []string
	for _, opt := range q.Options {
		if correct[opt.ID] {
			texts = append(texts, opt.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// QuestionKey builds the selection key used in QuizState.Selections
func QuestionKey(category Category, id int) string {
	return fmt.Sprintf("%s-%d", category, id)
}
