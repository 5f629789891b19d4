package cli

import (
	"fmt"
	"io"
	"strings"

	"timedquiz/internal/quiz"
)

// Render writes a text screen for v
func Render(w io.Writer, v quiz.View) {
	switch v.Phase {
	case quiz.PhaseUnconfigured:
		fmt.Fprintf(w, "Timed quiz: %d single + %d multiple questions, %s on the clock.\n",
			v.SingleCount, v.MultipleCount, quiz.FormatTime(int(quiz.AttemptDuration.Seconds())))
		fmt.Fprintln(w, "Type 'start [single multiple]' to begin, 'wrong' to review your last mistakes.")

	case quiz.PhaseResumePending:
		fmt.Fprintln(w, "An unfinished attempt was found. Type 'resume' to continue or 'new' to discard it.")

	case quiz.PhaseLoading:
		fmt.Fprintln(w, "Loading questions...")

	case quiz.PhaseFailed:
		fmt.Fprintf(w, "Could not load questions: %s\n", v.Error)
		fmt.Fprintln(w, "Type 'retry' to try again or 'restart' to change the counts.")

	case quiz.PhaseInProgress:
		renderQuestion(w, v)

	case quiz.PhaseSubmitted:
		fmt.Fprintf(w, "Score: %d\n", v.Score)
		RenderWrong(w, v.Wrong)
		fmt.Fprintln(w, "Type 'restart' for a new attempt.")
	}
}

func renderQuestion(w io.Writer, v quiz.View) {
	q := v.Question
	if q == nil {
		return
	}
	fmt.Fprintf(w, "[%d/%d] %s   time left %s\n", q.Number, v.Total, q.Type, v.Remaining)
	fmt.Fprintln(w, q.Prompt)
	for _, opt := range q.Options {
		mark := " "
		if opt.Selected {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s. %s\n", mark, opt.ID, opt.Text)
	}
	if v.ShowAnswer {
		fmt.Fprintf(w, "Answer: %s\n", strings.ReplaceAll(v.CorrectAnswer, "\n", " | "))
	}

	cmds := []string{"a <letter>"}
	if v.CanPrev {
		cmds = append(cmds, "p")
	}
	if v.Forward == quiz.ForwardNext {
		cmds = append(cmds, "n")
	}
	cmds = append(cmds, "r", "submit")
	fmt.Fprintf(w, "(%s)\n", strings.Join(cmds, ", "))
}

// RenderWrong lists wrong answers
func RenderWrong(w io.Writer, wrong []quiz.WrongView) {
	if len(wrong) == 0 {
		fmt.Fprintln(w, "No wrong answers.")
		return
	}
	fmt.Fprintf(w, "Wrong answers (%d):\n", len(wrong))
	for i, wv := range wrong {
		fmt.Fprintf(w, "%2d. %s\n", i+1, wv.Question)
		fmt.Fprintf(w, "    yours:   %s\n", wv.UserAnswer)
		fmt.Fprintf(w, "    correct: %s\n", strings.ReplaceAll(wv.CorrectAnswer, "\n", " | "))
	}
}
