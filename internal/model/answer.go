package model

import "strings"

// WrongAnswer is a question answered incorrectly together with what the user chose
type WrongAnswer struct {
	AnsweredQuestion
	UserAnswer []string `json:"userAnswer"`
}

// UserAnswerText renders the user's choices as option texts. Unknown ids are shown
// verbatim and an empty answer renders as "unanswered".
func (w *WrongAnswer) UserAnswerText() string {
	if len(w.UserAnswer) == 0 {
		return "unanswered"
	}
	texts := make([]string, 0, len(w.UserAnswer))
	for _, id := range w.UserAnswer {
		text := id
		for _, opt := range w.Options {
			if opt.ID == id {
				text = opt.Text
				break
			}
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, ", ")
}
