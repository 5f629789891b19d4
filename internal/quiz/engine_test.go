package quiz

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timedquiz/internal/model"
)

type manualScheduler struct {
	mu    sync.Mutex
	fn    func()
	armed int
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.armed++
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fn = nil
	}
}

// fire runs the scheduled callback n times, stopping early once it is cancelled
func (s *manualScheduler) fire(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		fn := s.fn
		s.mu.Unlock()
		if fn == nil {
			return
		}
		fn()
	}
}

// current returns the callback of the live countdown, or nil
func (s *manualScheduler) current() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn
}

func (s *manualScheduler) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}

type stubFetcher struct {
	mu            sync.Mutex
	set           *model.QuestionSet
	err           error
	calls         int
	singleCount   int
	multipleCount int
}

func (f *stubFetcher) GetQuestions(_ context.Context, singleCount, multipleCount int) (*model.QuestionSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.singleCount, f.multipleCount = singleCount, multipleCount
	return f.set, f.err
}

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk on fire") }
func (failingStorage) Set(context.Context, string, []byte) error   { return errors.New("quota exceeded") }
func (failingStorage) Delete(context.Context, string) error        { return errors.New("read-only") }

func testQuestionSet() *model.QuestionSet {
	return &model.QuestionSet{
		SingleChoice: model.CategorySample{
			TotalScore: model.SingleTotalScore,
			Questions: []model.QuestionRecord{
				{ID: 1, Type: model.CategorySingle, Question: "2+2?", Options: []string{"3", "4", "5"}, Answer: "B"},
				{ID: 2, Type: model.CategorySingle, Question: "Pick B", Options: []string{"A", "B", "C"}, Answer: "B"},
			},
		},
		MultipleChoice: model.CategorySample{
			TotalScore: model.MultipleTotalScore,
			Questions: []model.QuestionRecord{
				{ID: 1, Type: model.CategoryMultiple, Question: "Vowels?", Options: []string{"a", "b", "e", "f"}, Answer: "AC"},
				{ID: 3, Type: model.CategoryMultiple, Question: "Even?", Options: []string{"1", "2", "3", "4"}, Answer: "B D"},
			},
		},
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type engineHarness struct {
	engine    *Engine
	scheduler *manualScheduler
	fetcher   *stubFetcher
	storage   *MemoryStorage
	persister *Persister

	mu    sync.Mutex
	views []View
}

func newHarness(t *testing.T) *engineHarness {
	t.Helper()

	h := &engineHarness{
		scheduler: &manualScheduler{},
		fetcher:   &stubFetcher{set: testQuestionSet()},
		storage:   NewMemoryStorage(),
	}
	h.persister = NewPersister(h.storage, "", quietLogger())
	h.engine = NewEngine(h.fetcher, h.persister,
		WithScheduler(h.scheduler),
		WithLogger(quietLogger()),
		WithObserver(func(v View) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.views = append(h.views, v)
		}),
	)
	return h
}

func (h *engineHarness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.engine.Start(context.Background()))
	require.Equal(t, PhaseInProgress, h.engine.Phase())
}

func (h *engineHarness) countPhase(p Phase) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, v := range h.views {
		if v.Phase == p {
			n++
		}
	}
	return n
}

func TestEngineStart(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Configure(2, 2))
	h.start(t)

	assert.Equal(t, 2, h.fetcher.singleCount)
	assert.Equal(t, 2, h.fetcher.multipleCount)

	state := h.engine.State()
	assert.NotEmpty(t, state.AttemptID)
	assert.Zero(t, state.CurrentIndex)
	assert.Equal(t, 2700, state.RemainingTime)
	assert.Empty(t, state.Selections)
	assert.False(t, state.ShowAnswer)
	require.Len(t, state.Questions, 4)

	keys := make([]string, 0, len(state.Questions))
	for i := range state.Questions {
		keys = append(keys, state.Questions[i].Key())
	}
	assert.Equal(t, []string{"single-1", "single-2", "multiple-1", "multiple-3"}, keys)
	assert.True(t, h.scheduler.active())

	saved, ok := h.persister.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, state, saved)
}

func TestEngineTimerSubmitsExactlyOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Select(ctx, "single-1", "B"))

	h.scheduler.fire(2699)
	require.Equal(t, PhaseInProgress, h.engine.Phase())
	assert.Equal(t, 1, h.engine.State().RemainingTime)

	h.scheduler.fire(1)
	require.Equal(t, PhaseSubmitted, h.engine.Phase())
	assert.False(t, h.scheduler.active())

	h.engine.Tick()
	h.engine.Tick()
	assert.Equal(t, 1, h.countPhase(PhaseSubmitted))

	state := h.engine.State()
	assert.Zero(t, state.RemainingTime)
	assert.Equal(t, 25, state.Score)
	assert.Len(t, state.WrongQuestions, 3)

	_, ok := h.persister.Load(ctx)
	assert.False(t, ok)
}

func TestEngineNavigationClamps(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	require.NoError(t, h.engine.ToggleReveal(ctx))
	require.NoError(t, h.engine.Prev(ctx))
	state := h.engine.State()
	assert.Zero(t, state.CurrentIndex)
	assert.True(t, state.ShowAnswer, "a clamped prev is a full no-op")
	assert.False(t, h.engine.View().CanPrev)

	require.NoError(t, h.engine.Next(ctx))
	state = h.engine.State()
	assert.Equal(t, 1, state.CurrentIndex)
	assert.False(t, state.ShowAnswer)
	assert.Equal(t, ForwardNext, h.engine.View().Forward)

	require.NoError(t, h.engine.Next(ctx))
	require.NoError(t, h.engine.Next(ctx))
	require.NoError(t, h.engine.Next(ctx))
	assert.Equal(t, 3, h.engine.State().CurrentIndex)
	assert.Equal(t, ForwardSubmit, h.engine.View().Forward)

	require.NoError(t, h.engine.Prev(ctx))
	assert.Equal(t, 2, h.engine.State().CurrentIndex)
}

func TestEngineSelect(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Select(ctx, "single-1", "A"))
	require.NoError(t, h.engine.Select(ctx, "single-1", "C"))
	assert.Equal(t, []string{"C"}, h.engine.State().Selections["single-1"])

	require.NoError(t, h.engine.Select(ctx, "multiple-1", "A"))
	before := h.engine.State().Selections["multiple-1"]
	require.NoError(t, h.engine.Select(ctx, "multiple-1", "C"))
	assert.Equal(t, []string{"A", "C"}, h.engine.State().Selections["multiple-1"])
	require.NoError(t, h.engine.Select(ctx, "multiple-1", "C"))
	assert.Equal(t, before, h.engine.State().Selections["multiple-1"])

	require.NoError(t, h.engine.Select(ctx, "single-99", "A"))
	require.NoError(t, h.engine.Select(ctx, "single-2", "Z"))
	selections := h.engine.State().Selections
	assert.NotContains(t, selections, "single-99")
	assert.NotContains(t, selections, "single-2")

	saved, ok := h.persister.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, saved.Selections["multiple-1"])
}

func TestEngineSelectCurrentAndView(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	require.NoError(t, h.engine.SelectCurrent(ctx, "B"))
	require.NoError(t, h.engine.ToggleReveal(ctx))

	v := h.engine.View()
	require.NotNil(t, v.Question)
	assert.Equal(t, "single-1", v.Question.Key)
	assert.Equal(t, 1, v.Question.Number)
	assert.Equal(t, 4, v.Total)
	assert.Equal(t, "45:00", v.Remaining)
	assert.Equal(t, "4", v.CorrectAnswer)
	assert.Equal(t, []OptionView{
		{ID: "A", Text: "3"},
		{ID: "B", Text: "4", Selected: true},
		{ID: "C", Text: "5"},
	}, v.Question.Options)
}

func TestEngineSingleAnswerScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t)
	h.start(t)
	require.NoError(t, h.engine.Select(ctx, "single-2", "B"))
	require.NoError(t, h.engine.Submit(ctx))
	for _, w := range h.engine.State().WrongQuestions {
		assert.NotEqual(t, "single-2", w.Key())
	}

	h = newHarness(t)
	h.start(t)
	require.NoError(t, h.engine.Select(ctx, "single-2", "A"))
	require.NoError(t, h.engine.Submit(ctx))
	var found *model.WrongAnswer
	for _, w := range h.engine.State().WrongQuestions {
		if w.Key() == "single-2" {
			w := w
			found = &w
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, []string{"A"}, found.UserAnswer)
}

func TestEngineSubmit(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Select(ctx, "single-1", "B"))
	require.NoError(t, h.engine.Select(ctx, "single-2", "B"))
	require.NoError(t, h.engine.Select(ctx, "multiple-1", "C"))
	require.NoError(t, h.engine.Select(ctx, "multiple-1", "A"))
	require.NoError(t, h.engine.Select(ctx, "multiple-3", "B"))
	require.NoError(t, h.engine.Submit(ctx))

	assert.Equal(t, PhaseSubmitted, h.engine.Phase())
	assert.False(t, h.scheduler.active())

	state := h.engine.State()
	assert.Equal(t, 75, state.Score)
	require.Len(t, state.WrongQuestions, 1)
	assert.Equal(t, "multiple-3", state.WrongQuestions[0].Key())
	assert.Equal(t, []string{"B"}, state.WrongQuestions[0].UserAnswer)

	_, ok := h.persister.Load(ctx)
	assert.False(t, ok)
	assert.Equal(t, state.WrongQuestions, h.engine.WrongHistory(ctx))

	v := h.engine.View()
	assert.Equal(t, 75, v.Score)
	require.Len(t, v.Wrong, 1)
	assert.Equal(t, "2", v.Wrong[0].UserAnswer)
	assert.Equal(t, "2\n4", v.Wrong[0].CorrectAnswer)

	err := h.engine.Submit(ctx)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestEngineRestartKeepsCountsAndHistory(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Configure(3, 5))
	h.start(t)
	require.NoError(t, h.engine.Submit(ctx))
	wrong := h.engine.WrongHistory(ctx)
	require.Len(t, wrong, 4)

	require.NoError(t, h.engine.Restart(ctx))
	assert.Equal(t, PhaseUnconfigured, h.engine.Phase())
	state := h.engine.State()
	assert.Equal(t, 3, state.SingleCount)
	assert.Equal(t, 5, state.MultipleCount)
	assert.Empty(t, state.Questions)
	assert.Equal(t, wrong, h.engine.WrongHistory(ctx))
}

func TestEngineResume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	first := newHarness(t)
	first.start(t)
	require.NoError(t, first.engine.Select(ctx, "multiple-1", "A"))
	require.NoError(t, first.engine.Next(ctx))
	first.scheduler.fire(30)
	snapshot := first.engine.State()
	first.engine.Close()

	second := newHarness(t)
	second.storage = first.storage
	second.persister = NewPersister(first.storage, "", quietLogger())
	second.engine = NewEngine(second.fetcher, second.persister,
		WithScheduler(second.scheduler), WithLogger(quietLogger()))

	found, err := second.engine.Boot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, PhaseResumePending, second.engine.Phase())

	require.NoError(t, second.engine.Resume(ctx))
	assert.Equal(t, PhaseInProgress, second.engine.Phase())
	assert.Equal(t, snapshot, second.engine.State())
	assert.Equal(t, 2670, second.engine.State().RemainingTime)
	assert.True(t, second.scheduler.active())
	assert.Zero(t, second.fetcher.calls)
}

func TestEngineDiscard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	h.persister.Save(ctx, &model.QuizState{
		Questions:     FormatQuestions(testQuestionSet().SingleChoice.Questions, model.CategorySingle),
		RemainingTime: 10,
		SingleCount:   7,
	})

	found, err := h.engine.Boot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, h.engine.Discard(ctx))

	assert.Equal(t, PhaseUnconfigured, h.engine.Phase())
	assert.Equal(t, DefaultSingleCount, h.engine.State().SingleCount)
	_, ok := h.persister.Load(ctx)
	assert.False(t, ok)
}

func TestEngineBootIgnoresUnusableSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	h.persister.Save(ctx, &model.QuizState{RemainingTime: 100})
	found, err := h.engine.Boot(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, PhaseUnconfigured, h.engine.Phase())

	require.NoError(t, h.storage.Set(ctx, StateKey, []byte("{not json")))
	found, err = h.engine.Boot(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEngineFetchFailureAndRetry(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	h.fetcher.err = errors.New("connection refused")
	err := h.engine.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, h.engine.Phase())
	assert.Contains(t, h.engine.View().Error, "connection refused")
	assert.False(t, h.scheduler.active())

	h.fetcher.err = nil
	require.NoError(t, h.engine.Retry(ctx))
	assert.Equal(t, PhaseInProgress, h.engine.Phase())
	assert.Empty(t, h.engine.View().Error)
	assert.Equal(t, 2, h.fetcher.calls)
}

func TestEngineEmptySampleFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.fetcher.set = &model.QuestionSet{}
	err := h.engine.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoQuestions))
	assert.Equal(t, PhaseFailed, h.engine.Phase())
}

type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) GetQuestions(context.Context, int, int) (*model.QuestionSet, error) {
	close(f.entered)
	<-f.release
	return testQuestionSet(), nil
}

func TestEngineIgnoresStaleFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fetcher := &blockingFetcher{entered: make(chan struct{}), release: make(chan struct{})}
	scheduler := &manualScheduler{}
	engine := NewEngine(fetcher, NewPersister(NewMemoryStorage(), "", quietLogger()),
		WithScheduler(scheduler), WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- engine.Start(ctx) }()

	<-fetcher.entered
	require.Equal(t, PhaseLoading, engine.Phase())
	require.NoError(t, engine.Restart(ctx))
	close(fetcher.release)

	require.NoError(t, <-done)
	assert.Equal(t, PhaseUnconfigured, engine.Phase())
	assert.Empty(t, engine.State().Questions)
	assert.False(t, scheduler.active())
}

func TestEnginePersistenceFailuresAreSwallowed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	scheduler := &manualScheduler{}
	engine := NewEngine(&stubFetcher{set: testQuestionSet()}, NewPersister(failingStorage{}, "", quietLogger()),
		WithScheduler(scheduler), WithLogger(quietLogger()))

	found, err := engine.Boot(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, engine.Start(ctx))
	require.NoError(t, engine.Select(ctx, "single-1", "B"))
	scheduler.fire(5)
	require.NoError(t, engine.Submit(ctx))
	assert.Equal(t, PhaseSubmitted, engine.Phase())
	assert.Empty(t, engine.WrongHistory(ctx))
}

func TestEngineInvalidTransitions(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	for name, call := range map[string]func() error{
		"select":  func() error { return h.engine.Select(ctx, "single-1", "A") },
		"next":    func() error { return h.engine.Next(ctx) },
		"prev":    func() error { return h.engine.Prev(ctx) },
		"reveal":  func() error { return h.engine.ToggleReveal(ctx) },
		"submit":  func() error { return h.engine.Submit(ctx) },
		"restart": func() error { return h.engine.Restart(ctx) },
		"resume":  func() error { return h.engine.Resume(ctx) },
		"discard": func() error { return h.engine.Discard(ctx) },
		"retry":   func() error { return h.engine.Retry(ctx) },
	} {
		err := call()
		assert.Truef(t, errors.Is(err, ErrInvalidTransition), "%s: %v", name, err)
	}
	assert.Equal(t, PhaseUnconfigured, h.engine.Phase())

	err := h.engine.Configure(-1, 2)
	assert.True(t, errors.Is(err, ErrInvalidCount))

	h.start(t)
	err = h.engine.Configure(1, 1)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	err = h.engine.Start(ctx)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestEngineClosedEngineLeavesStorageAlone(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	h.engine.Close()
	assert.Equal(t, PhaseClosed, h.engine.Phase())
	assert.False(t, h.scheduler.active())

	// another session now owns the slots
	require.NoError(t, h.storage.Delete(ctx, StateKey))

	for name, call := range map[string]func() error{
		"select":  func() error { return h.engine.Select(ctx, "single-1", "A") },
		"current": func() error { return h.engine.SelectCurrent(ctx, "A") },
		"next":    func() error { return h.engine.Next(ctx) },
		"prev":    func() error { return h.engine.Prev(ctx) },
		"reveal":  func() error { return h.engine.ToggleReveal(ctx) },
		"submit":  func() error { return h.engine.Submit(ctx) },
		"restart": func() error { return h.engine.Restart(ctx) },
		"start":   func() error { return h.engine.Start(ctx) },
		"retry":   func() error { return h.engine.Retry(ctx) },
		"resume":  func() error { return h.engine.Resume(ctx) },
		"discard": func() error { return h.engine.Discard(ctx) },
		"config":  func() error { return h.engine.Configure(1, 1) },
	} {
		err := call()
		assert.Truef(t, errors.Is(err, ErrInvalidTransition), "%s: %v", name, err)
	}
	_, err := h.engine.Boot(ctx)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	h.engine.Tick()

	raw, err := h.storage.Get(ctx, StateKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
	raw, err = h.storage.Get(ctx, WrongListKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Equal(t, PhaseClosed, h.engine.Phase())
	assert.Equal(t, 1, h.fetcher.calls)
}

func TestEngineDropsTickFromStoppedCountdown(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	stale := h.scheduler.current()
	require.NotNil(t, stale)

	require.NoError(t, h.engine.Submit(ctx))
	require.NoError(t, h.engine.Restart(ctx))
	h.start(t)

	// a tick of the first attempt that was already running when it was stopped
	stale()
	assert.Equal(t, 2700, h.engine.State().RemainingTime)

	h.scheduler.fire(1)
	assert.Equal(t, 2699, h.engine.State().RemainingTime)
}

func TestEngineResumeClampsNegativeClock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	h.persister.Save(ctx, &model.QuizState{
		AttemptID:     "a_expired",
		Questions:     FormatQuestions(testQuestionSet().SingleChoice.Questions, model.CategorySingle),
		Selections:    map[string][]string{"single-1": {"B"}},
		RemainingTime: -5,
	})

	found, err := h.engine.Boot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, h.engine.Resume(ctx))
	assert.Zero(t, h.engine.State().RemainingTime)

	h.scheduler.fire(1)
	require.Equal(t, PhaseSubmitted, h.engine.Phase())
	assert.Equal(t, 50, h.engine.State().Score)
}
