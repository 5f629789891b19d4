package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"timedquiz/internal/quiz"
)

// Terminal drives one engine from line commands
type Terminal struct {
	engine *quiz.Engine
	out    io.Writer

	mu        sync.Mutex // guards out and lastPhase; the countdown renders from its own goroutine
	lastPhase quiz.Phase
}

// NewTerminal creates a terminal whose engine reads questions from fetcher and
// keeps its state in persister
func NewTerminal(fetcher quiz.Fetcher, persister *quiz.Persister, out io.Writer, opts ...quiz.Option) *Terminal {
	t := &Terminal{out: out}
	opts = append([]quiz.Option{quiz.WithObserver(t.onChange)}, opts...)
	t.engine = quiz.NewEngine(fetcher, persister, opts...)
	return t
}

// Engine returns the engine driven by the terminal
func (t *Terminal) Engine() *quiz.Engine {
	return t.engine
}

// onChange redraws on every phase change, including the timer's submission
func (t *Terminal) onChange(v quiz.View) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v.Phase == t.lastPhase {
		return
	}
	t.lastPhase = v.Phase
	if v.Phase == quiz.PhaseSubmitted && v.RemainingSeconds == 0 {
		fmt.Fprintln(t.out, "Time is up!")
	}
	Render(t.out, v)
}

func (t *Terminal) render() {
	v := t.engine.View()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPhase = v.Phase
	Render(t.out, v)
}

func (t *Terminal) printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// Run reads commands from in until quit or end of input
func (t *Terminal) Run(ctx context.Context, in io.Reader) error {
	defer t.engine.Close()

	found, err := t.engine.Boot(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to boot quiz")
	}
	if !found {
		t.render()
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && strings.EqualFold(fields[0], "quit") {
			return nil
		}
		if err := t.Exec(ctx, fields); err != nil {
			if errors.Is(err, quiz.ErrInvalidTransition) {
				t.printf("Not available now. Type 'help' for commands.\n")
				continue
			}
			t.printf("error: %v\n", err)
		}
	}
	return errors.Wrap(scanner.Err(), "failed to read input")
}

// Exec runs one command
func (t *Terminal) Exec(ctx context.Context, fields []string) error {
	if len(fields) == 0 {
		t.render()
		return nil
	}

	e := t.engine
	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "start":
		if len(args) == 2 {
			single, err1 := strconv.Atoi(args[0])
			multiple, err2 := strconv.Atoi(args[1])
			if err1 != nil || err2 != nil {
				return errors.New("usage: start [single multiple]")
			}
			if err := e.Configure(single, multiple); err != nil {
				return err
			}
		} else if len(args) != 0 {
			return errors.New("usage: start [single multiple]")
		}
		return e.Start(ctx)

	case "a", "answer":
		if len(args) == 0 {
			return errors.New("usage: a <letter>...")
		}
		for _, letter := range args {
			if err := e.SelectCurrent(ctx, strings.ToUpper(letter)); err != nil {
				return err
			}
		}
		t.render()

	case "n", "next":
		if err := e.Next(ctx); err != nil {
			return err
		}
		t.render()

	case "p", "prev":
		if err := e.Prev(ctx); err != nil {
			return err
		}
		t.render()

	case "r", "reveal":
		if err := e.ToggleReveal(ctx); err != nil {
			return err
		}
		t.render()

	case "submit":
		return e.Submit(ctx)
	case "resume":
		return e.Resume(ctx)
	case "new":
		return e.Discard(ctx)
	case "restart":
		return e.Restart(ctx)
	case "retry":
		return e.Retry(ctx)

	case "wrong":
		views := quiz.WrongViews(e.WrongHistory(ctx))
		t.mu.Lock()
		RenderWrong(t.out, views)
		t.mu.Unlock()

	case "help":
		t.printf("start [single multiple], a <letter>, n, p, r, submit, resume, new, restart, retry, wrong, quit\n")

	default:
		return errors.Errorf("unknown command %q", cmd)
	}
	return nil
}
