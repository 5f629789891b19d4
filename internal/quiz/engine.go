package quiz

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"timedquiz/internal/model"
)

// Phase is the engine's position in the attempt lifecycle
type Phase string

const (
	PhaseUnconfigured  Phase = "unconfigured"
	PhaseLoading       Phase = "loading"
	PhaseInProgress    Phase = "in_progress"
	PhaseSubmitted     Phase = "submitted"
	PhaseResumePending Phase = "resume_pending"
	PhaseFailed        Phase = "failed" // question fetch failed, Retry available
	PhaseClosed        Phase = "closed" // no transition is accepted after Close
)

const (
	DefaultSingleCount   = 20
	DefaultMultipleCount = 20
	AttemptDuration      = 45 * time.Minute
	TickInterval         = time.Second
)

var (
	ErrInvalidTransition = errors.New("invalid quiz transition")
	ErrInvalidCount      = errors.New("question count must not be negative")
	ErrNoQuestions       = errors.New("no questions available")
)

// Fetcher supplies sampled question sets. Both the in-process sampling service
// and the HTTP client implement it.
type Fetcher interface {
	GetQuestions(ctx context.Context, singleCount, multipleCount int) (*model.QuestionSet, error)
}

// Option configures an Engine
type Option func(*Engine)

// WithScheduler sets the countdown scheduler (TickerScheduler by default)
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithLogger sets the engine logger
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers fn to receive a fresh View after every state change.
// fn runs outside the engine lock and may call back into the engine.
func WithObserver(fn func(View)) Option {
	return func(e *Engine) { e.observer = fn }
}

// Engine owns one quiz attempt. All transitions are serialized behind a single
// mutex, so timer ticks and user input never interleave.
type Engine struct {
	fetcher   Fetcher
	persister *Persister
	scheduler Scheduler
	logger    *log.Logger
	observer  func(View)

	mu         sync.Mutex
	phase      Phase
	state      *model.QuizState
	pending    *model.QuizState // snapshot offered while ResumePending
	lastErr    error
	generation uint64 // bumped whenever an in-flight fetch must be ignored
	stopTimer  func()
	timerArm   uint64 // identifies the countdown a scheduled tick belongs to
}

// NewEngine creates an engine in the Unconfigured phase with default counts
func NewEngine(fetcher Fetcher, persister *Persister, opts ...Option) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		persister: persister,
		scheduler: TickerScheduler{},
		logger:    log.Default(),
		phase:     PhaseUnconfigured,
		state:     newState(DefaultSingleCount, DefaultMultipleCount),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newState(singleCount, multipleCount int) *model.QuizState {
	return &model.QuizState{
		Selections:     map[string][]string{},
		RemainingTime:  int(AttemptDuration / time.Second),
		WrongQuestions: []model.WrongAnswer{},
		SingleCount:    singleCount,
		MultipleCount:  multipleCount,
	}
}

func newAttemptID() string {
	return "a_" + uuid.New().String()[:8]
}

// Phase returns the current phase
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// State returns a deep copy of the current attempt state
func (e *Engine) State() *model.QuizState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Err returns the error that moved the engine into PhaseFailed, if any
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// View renders the current state for presentation
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	return buildView(e.phase, e.state, e.lastErr)
}

func (e *Engine) notify(v View) {
	if e.observer != nil {
		e.observer(v)
	}
}

func (e *Engine) invalid(op string) error {
	return errors.Wrapf(ErrInvalidTransition, "%s not allowed in phase %s", op, e.phase)
}

// do runs fn under the lock when the engine is in one of phases, then notifies
// the observer if fn reports a change.
func (e *Engine) do(op string, phases []Phase, fn func() (bool, error)) error {
	e.mu.Lock()
	allowed := false
	for _, p := range phases {
		if e.phase == p {
			allowed = true
			break
		}
	}
	if !allowed {
		err := e.invalid(op)
		e.mu.Unlock()
		return err
	}
	changed, err := fn()
	view := e.viewLocked()
	e.mu.Unlock()

	if changed {
		e.notify(view)
	}
	return err
}

// mutate applies fn to the in-progress state and writes the result through to
// storage when fn reports a change.
func (e *Engine) mutate(ctx context.Context, op string, fn func(s *model.QuizState) bool) error {
	return e.do(op, []Phase{PhaseInProgress}, func() (bool, error) {
		if !fn(e.state) {
			return false, nil
		}
		e.persister.Save(ctx, e.state)
		return true, nil
	})
}

// Boot checks storage for an interrupted attempt. When one exists the engine moves
// to ResumePending and reports true.
func (e *Engine) Boot(ctx context.Context) (bool, error) {
	var found bool
	err := e.do("boot", []Phase{PhaseUnconfigured}, func() (bool, error) {
		snapshot, ok := e.persister.Load(ctx)
		if !ok {
			return false, nil
		}
		if !resumable(snapshot) {
			e.logger.Printf("Discarding unusable quiz snapshot (%d questions, index %d)",
				len(snapshot.Questions), snapshot.CurrentIndex)
			e.persister.Clear(ctx)
			return false, nil
		}
		e.pending = snapshot
		e.phase = PhaseResumePending
		found = true
		return true, nil
	})
	return found, err
}

func resumable(s *model.QuizState) bool {
	return len(s.Questions) > 0 && s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Questions)
}

// Resume continues the interrupted attempt exactly as it was stored
func (e *Engine) Resume(ctx context.Context) error {
	return e.do("resume", []Phase{PhaseResumePending}, func() (bool, error) {
		e.state = e.pending
		e.pending = nil
		if e.state.Selections == nil {
			e.state.Selections = map[string][]string{}
		}
		if e.state.RemainingTime < 0 {
			e.state.RemainingTime = 0
		}
		e.phase = PhaseInProgress
		e.armTimerLocked()
		e.logger.Printf("Resumed attempt %s with %ds left", e.state.AttemptID, e.state.RemainingTime)
		return true, nil
	})
}

// Discard drops the interrupted attempt and starts over with default counts
func (e *Engine) Discard(ctx context.Context) error {
	return e.do("discard", []Phase{PhaseResumePending}, func() (bool, error) {
		e.pending = nil
		e.persister.Clear(ctx)
		e.state = newState(DefaultSingleCount, DefaultMultipleCount)
		e.phase = PhaseUnconfigured
		return true, nil
	})
}

// Configure sets how many questions of each category the next attempt requests
func (e *Engine) Configure(singleCount, multipleCount int) error {
	if singleCount < 0 || multipleCount < 0 {
		return errors.Wrapf(ErrInvalidCount, "single=%d multiple=%d", singleCount, multipleCount)
	}
	return e.do("configure", []Phase{PhaseUnconfigured}, func() (bool, error) {
		e.state.SingleCount = singleCount
		e.state.MultipleCount = multipleCount
		return true, nil
	})
}

// Start requests a question sample and begins the attempt
func (e *Engine) Start(ctx context.Context) error {
	return e.load(ctx, "start", PhaseUnconfigured)
}

// Retry repeats a failed question fetch
func (e *Engine) Retry(ctx context.Context) error {
	return e.load(ctx, "retry", PhaseFailed)
}

func (e *Engine) load(ctx context.Context, op string, from Phase) error {
	var gen uint64
	var singleCount, multipleCount int
	err := e.do(op, []Phase{from}, func() (bool, error) {
		e.phase = PhaseLoading
		e.lastErr = nil
		e.generation++
		gen = e.generation
		singleCount, multipleCount = e.state.SingleCount, e.state.MultipleCount
		return true, nil
	})
	if err != nil {
		return err
	}

	set, fetchErr := e.fetcher.GetQuestions(ctx, singleCount, multipleCount)

	e.mu.Lock()
	if e.generation != gen || e.phase != PhaseLoading {
		e.mu.Unlock()
		e.logger.Printf("Ignoring question set for an abandoned attempt")
		return nil
	}

	var questions []model.AnsweredQuestion
	if fetchErr == nil && set == nil {
		fetchErr = ErrNoQuestions
	}
	if fetchErr == nil {
		questions = append(
			FormatQuestions(set.SingleChoice.Questions, model.CategorySingle),
			FormatQuestions(set.MultipleChoice.Questions, model.CategoryMultiple)...,
		)
		if len(questions) == 0 {
			fetchErr = ErrNoQuestions
		}
	}

	if fetchErr != nil {
		e.phase = PhaseFailed
		e.lastErr = fetchErr
		view := e.viewLocked()
		e.mu.Unlock()
		e.logger.Printf("Failed to load questions: %v", fetchErr)
		e.notify(view)
		return errors.Wrap(fetchErr, "failed to load questions")
	}

	e.state = newState(singleCount, multipleCount)
	e.state.AttemptID = newAttemptID()
	e.state.Questions = questions
	e.phase = PhaseInProgress
	e.persister.Save(ctx, e.state)
	e.armTimerLocked()
	e.logger.Printf("Started attempt %s with %d questions", e.state.AttemptID, len(questions))
	view := e.viewLocked()
	e.mu.Unlock()

	e.notify(view)
	return nil
}

// Select records optionID for the question under key. Single-answer questions
// keep only the latest choice; multiple-answer questions toggle membership.
// Unknown questions or options are ignored.
func (e *Engine) Select(ctx context.Context, key, optionID string) error {
	return e.mutate(ctx, "select", func(s *model.QuizState) bool {
		q := s.Question(key)
		if q == nil || !q.HasOption(optionID) {
			return false
		}
		if q.Type == model.CategorySingle {
			s.Selections[key] = []string{optionID}
			return true
		}
		s.Selections[key] = toggle(s.Selections[key], optionID)
		return true
	})
}

func toggle(set []string, id string) []string {
	out := make([]string, 0, len(set)+1)
	found := false
	for _, v := range set {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// SelectCurrent selects optionID on the question at the current index
func (e *Engine) SelectCurrent(ctx context.Context, optionID string) error {
	e.mu.Lock()
	var key string
	if e.phase == PhaseInProgress {
		key = e.state.Questions[e.state.CurrentIndex].Key()
	}
	e.mu.Unlock()
	return e.Select(ctx, key, optionID)
}

// Next moves forward one question; it is a no-op on the last question
func (e *Engine) Next(ctx context.Context) error {
	return e.mutate(ctx, "next", func(s *model.QuizState) bool {
		if s.CurrentIndex >= len(s.Questions)-1 {
			return false
		}
		s.CurrentIndex++
		s.ShowAnswer = false
		return true
	})
}

// Prev moves back one question; it is a no-op on the first question
func (e *Engine) Prev(ctx context.Context) error {
	return e.mutate(ctx, "prev", func(s *model.QuizState) bool {
		if s.CurrentIndex <= 0 {
			return false
		}
		s.CurrentIndex--
		s.ShowAnswer = false
		return true
	})
}

// ToggleReveal shows or hides the correct answer of the current question
func (e *Engine) ToggleReveal(ctx context.Context) error {
	return e.mutate(ctx, "reveal", func(s *model.QuizState) bool {
		s.ShowAnswer = !s.ShowAnswer
		return true
	})
}

// Tick advances the countdown by one second and submits when it reaches zero.
// Ticks outside an active attempt are ignored.
func (e *Engine) Tick() {
	e.tick(0)
}

// tick applies a scheduled tick. arm is the countdown it was scheduled for; a
// tick from a stopped countdown is dropped. Zero matches any countdown.
func (e *Engine) tick(arm uint64) {
	ctx := context.Background()
	e.do("tick", []Phase{PhaseInProgress}, func() (bool, error) {
		if arm != 0 && arm != e.timerArm {
			return false, nil
		}
		if e.state.RemainingTime > 0 {
			e.state.RemainingTime--
		}
		if e.state.RemainingTime == 0 {
			e.logger.Printf("Time is up for attempt %s", e.state.AttemptID)
			e.submitLocked(ctx)
			return true, nil
		}
		e.persister.Save(ctx, e.state)
		return true, nil
	})
}

// Submit grades the attempt
func (e *Engine) Submit(ctx context.Context) error {
	return e.do("submit", []Phase{PhaseInProgress}, func() (bool, error) {
		e.submitLocked(ctx)
		return true, nil
	})
}

func (e *Engine) submitLocked(ctx context.Context) {
	e.stopTimerLocked()

	score, wrong := Score(e.state.Questions, e.state.Selections)
	e.state.Score = score
	e.state.WrongQuestions = wrong
	e.phase = PhaseSubmitted

	e.persister.SaveWrongList(ctx, wrong)
	e.persister.Clear(ctx)
	e.logger.Printf("Attempt %s submitted: score %d, %d wrong of %d",
		e.state.AttemptID, score, len(wrong), len(e.state.Questions))
}

// Restart abandons the current attempt and returns to configuration. Requested
// counts are kept; the wrong-answer history is not touched.
func (e *Engine) Restart(ctx context.Context) error {
	return e.do("restart", []Phase{PhaseSubmitted, PhaseFailed, PhaseLoading}, func() (bool, error) {
		e.stopTimerLocked()
		e.generation++
		e.lastErr = nil
		e.persister.Clear(ctx)
		e.state = newState(e.state.SingleCount, e.state.MultipleCount)
		e.phase = PhaseUnconfigured
		return true, nil
	})
}

// WrongHistory returns the wrong list of the most recent submission
func (e *Engine) WrongHistory(ctx context.Context) []model.WrongAnswer {
	return e.persister.LoadWrongList(ctx)
}

// Close stops the countdown and makes any in-flight fetch a no-op. Every later
// transition fails with ErrInvalidTransition, so a closed engine never writes
// to storage again.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	e.generation++
	e.pending = nil
	e.phase = PhaseClosed
}

func (e *Engine) armTimerLocked() {
	e.stopTimerLocked()
	arm := e.timerArm
	e.stopTimer = e.scheduler.Every(TickInterval, func() { e.tick(arm) })
}

func (e *Engine) stopTimerLocked() {
	e.timerArm++
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
}
