package model

// QuizState is the full in-memory state of one attempt. The JSON layout is the
// durable snapshot format, so field names must stay stable.
type QuizState struct {
	AttemptID      string              `json:"attemptId,omitempty"`
	Selections     map[string][]string `json:"selectedOptions"`
	CurrentIndex   int                 `json:"currentQuestionIndex"`
	RemainingTime  int                 `json:"remainingTime"` // seconds
	Score          int                 `json:"score"`
	WrongQuestions []WrongAnswer       `json:"wrongQuestions"`
	ShowAnswer     bool                `json:"showAnswer"`
	SingleCount    int                 `json:"singleCount"`
	MultipleCount  int                 `json:"multipleCount"`
	Questions      []AnsweredQuestion  `json:"questions"`
}

// Clone returns a deep copy of s
func (s *QuizState) Clone() *QuizState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Selections != nil {
		c.Selections = make(map[string][]string, len(s.Selections))
		for k, v := range s.Selections {
			c.Selections[k] = append([]string{}, v...)
		}
	}
	if s.Questions != nil {
		c.Questions = make([]AnsweredQuestion, len(s.Questions))
		for i, q := range s.Questions {
			c.Questions[i] = q.clone()
		}
	}
	if s.WrongQuestions != nil {
		c.WrongQuestions = make([]WrongAnswer, len(s.WrongQuestions))
		for i, w := range s.WrongQuestions {
			c.WrongQuestions[i] = WrongAnswer{
				AnsweredQuestion: w.AnsweredQuestion.clone(),
				UserAnswer:       cloneStrings(w.UserAnswer),
			}
		}
	}
	return &c
}

// Question returns the question stored under key, or nil
func (s *QuizState) Question(key string) *AnsweredQuestion {
	for i := range s.Questions {
		if s.Questions[i].Key() == key {
			return &s.Questions[i]
		}
	}
	return nil
}

func (q AnsweredQuestion) clone() AnsweredQuestion {
	c := q
	if q.Options != nil {
		c.Options = append([]DisplayOption{}, q.Options...)
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
