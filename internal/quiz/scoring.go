package quiz

import (
	"math"
	"sort"
	"strings"

	"timedquiz/internal/model"
)

// AnswersEqual compares a selection set against a canonical letter string.
// Whitespace in correct is ignored and order does not matter on either side.
// Duplicates are not collapsed, so ["A","A"] never equals "A".
func AnswersEqual(userAnswer []string, correct model.AnswerKey) bool {
	user := append([]string(nil), userAnswer...)
	want := correct.Letters()
	sort.Strings(user)
	sort.Strings(want)
	return strings.Join(user, "") == strings.Join(want, "")
}

// Score grades every question against selections. Unanswered questions count as
// wrong with an empty user answer. An empty question list scores 0.
func Score(questions []model.AnsweredQuestion, selections map[string][]string) (int, []model.WrongAnswer) {
	correct := 0
	wrong := []model.WrongAnswer{}

	for _, q := range questions {
		userAnswer := selections[q.Key()]
		if userAnswer == nil {
			userAnswer = []string{}
		}
		if AnswersEqual(userAnswer, q.Answer) {
			correct++
			continue
		}
		wrong = append(wrong, model.WrongAnswer{
			AnsweredQuestion: q,
			UserAnswer:       append([]string{}, userAnswer...),
		})
	}

	if len(questions) == 0 {
		return 0, wrong
	}
	return int(math.Round(float64(correct) / float64(len(questions)) * 100)), wrong
}

// FormatQuestions labels each record's options A, B, C... in array order and tags
// it with category. The result shares no slices with records.
func FormatQuestions(records []model.QuestionRecord, category model.Category) []model.AnsweredQuestion {
	out := make([]model.AnsweredQuestion, 0, len(records))
	for _, rec := range records {
		opts := make([]model.DisplayOption, len(rec.Options))
		for i, text := range rec.Options {
			opts[i] = model.DisplayOption{ID: model.OptionLetter(i), Text: text}
		}
		out = append(out, model.AnsweredQuestion{
			ID:       rec.ID,
			Type:     category,
			Question: rec.Question,
			Options:  opts,
			Answer:   rec.Answer,
		})
	}
	return out
}
