package quiz

import (
	"fmt"

	"timedquiz/internal/model"
)

// Forward actions offered on the current question
const (
	ForwardNext   = "next"
	ForwardSubmit = "submit"
)

// View is everything a presentation needs to render the engine. It carries no
// behaviour; user gestures go back through Engine methods.
type View struct {
	Phase            Phase         `json:"phase"`
	AttemptID        string        `json:"attemptId,omitempty"`
	SingleCount      int           `json:"singleCount"`
	MultipleCount    int           `json:"multipleCount"`
	Index            int           `json:"index"`
	Total            int           `json:"total"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Remaining        string        `json:"remaining"`
	Question         *QuestionView `json:"question,omitempty"`
	ShowAnswer       bool          `json:"showAnswer"`
	CorrectAnswer    string        `json:"correctAnswer,omitempty"`
	CanPrev          bool          `json:"canPrev"`
	Forward          string        `json:"forward,omitempty"`
	Score            int           `json:"score"`
	Wrong            []WrongView   `json:"wrong,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// QuestionView is the current question with selection marks
type QuestionView struct {
	Key     string       `json:"key"`
	Number  int          `json:"number"`
	Type    string       `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []OptionView `json:"options"`
}

// OptionView is one option of the current question
type OptionView struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// WrongView is a wrong answer rendered as text
type WrongView struct {
	Key           string `json:"key"`
	Question      string `json:"question"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
}

// FormatTime renders seconds as m:ss
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// WrongViews renders a wrong list for display
func WrongViews(wrong []model.WrongAnswer) []WrongView {
	out := make([]WrongView, 0, len(wrong))
	for i := range wrong {
		w := &wrong[i]
		out = append(out, WrongView{
			Key:           w.Key(),
			Question:      w.Question,
			UserAnswer:    w.UserAnswerText(),
			CorrectAnswer: w.CorrectAnswerText(),
		})
	}
	return out
}

func buildView(phase Phase, s *model.QuizState, lastErr error) View {
	v := View{
		Phase:            phase,
		AttemptID:        s.AttemptID,
		SingleCount:      s.SingleCount,
		MultipleCount:    s.MultipleCount,
		RemainingSeconds: s.RemainingTime,
		Remaining:        FormatTime(s.RemainingTime),
	}
	if lastErr != nil {
		v.Error = lastErr.Error()
	}

	switch phase {
	case PhaseInProgress:
		v.Total = len(s.Questions)
		v.Index = s.CurrentIndex
		v.CanPrev = s.CurrentIndex > 0
		v.Forward = ForwardNext
		if s.CurrentIndex == len(s.Questions)-1 {
			v.Forward = ForwardSubmit
		}

		q := &s.Questions[s.CurrentIndex]
		selected := make(map[string]bool)
		for _, id := range s.Selections[q.Key()] {
			selected[id] = true
		}
		qv := &QuestionView{
			Key:    q.Key(),
			Number: s.CurrentIndex + 1,
			Type:   string(q.Type),
			Prompt: q.Question,
		}
		for _, opt := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: opt.ID, Text: opt.Text, Selected: selected[opt.ID]})
		}
		v.Question = qv

		v.ShowAnswer = s.ShowAnswer
		if s.ShowAnswer {
			v.CorrectAnswer = q.CorrectAnswerText()
		}

	case PhaseSubmitted:
		v.Total = len(s.Questions)
		v.Score = s.Score
		v.Wrong = WrongViews(s.WrongQuestions)
	}
	return v
}
