package quiz

import (
	"context"
	"log"
	"sync"

	"github.com/goccy/go-json"

	"timedquiz/internal/model"
)

// Durable slot names
const (
	StateKey     = "quiz_state"
	WrongListKey = "wrong_questions"
)

// Storage is a durable string-keyed byte store. Get returns (nil, nil) for a
// missing key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Persister mirrors quiz state into Storage. It is best-effort: every failure is
// logged and swallowed so persistence never interrupts the quiz.
type Persister struct {
	storage   Storage
	namespace string
	logger    *log.Logger
}

// NewPersister creates a persister. A non-empty namespace prefixes both slots,
// letting several profiles share one store.
func NewPersister(storage Storage, namespace string, logger *log.Logger) *Persister {
	if logger == nil {
		logger = log.Default()
	}
	return &Persister{storage: storage, namespace: namespace, logger: logger}
}

func (p *Persister) key(slot string) string {
	if p.namespace == "" {
		return slot
	}
	return p.namespace + ":" + slot
}

// Save writes the active attempt snapshot
func (p *Persister) Save(ctx context.Context, state *model.QuizState) {
	data, err := json.Marshal(state)
	if err != nil {
		p.logger.Printf("Failed to encode quiz state: %v", err)
		return
	}
	if err := p.storage.Set(ctx, p.key(StateKey), data); err != nil {
		p.logger.Printf("Failed to save quiz state: %v", err)
	}
}

// Load returns the stored snapshot. Missing, unreadable and corrupt snapshots all
// report false.
func (p *Persister) Load(ctx context.Context) (*model.QuizState, bool) {
	data, err := p.storage.Get(ctx, p.key(StateKey))
	if err != nil {
		p.logger.Printf("Failed to load quiz state: %v", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var state model.QuizState
	if err := json.Unmarshal(data, &state); err != nil {
		p.logger.Printf("Failed to decode quiz state: %v", err)
		return nil, false
	}
	return &state, true
}

// Clear removes the active attempt snapshot
func (p *Persister) Clear(ctx context.Context) {
	if err := p.storage.Delete(ctx, p.key(StateKey)); err != nil {
		p.logger.Printf("Failed to clear quiz state: %v", err)
	}
}

// SaveWrongList overwrites the stored wrong list of the latest submission
func (p *Persister) SaveWrongList(ctx context.Context, wrong []model.WrongAnswer) {
	data, err := json.Marshal(wrong)
	if err != nil {
		p.logger.Printf("Failed to encode wrong questions: %v", err)
		return
	}
	if err := p.storage.Set(ctx, p.key(WrongListKey), data); err != nil {
		p.logger.Printf("Failed to save wrong questions: %v", err)
	}
}

// LoadWrongList returns the wrong list of the latest submission, empty when none
func (p *Persister) LoadWrongList(ctx context.Context) []model.WrongAnswer {
	data, err := p.storage.Get(ctx, p.key(WrongListKey))
	if err != nil {
		p.logger.Printf("Failed to load wrong questions: %v", err)
		return []model.WrongAnswer{}
	}
	if data == nil {
		return []model.WrongAnswer{}
	}
	var wrong []model.WrongAnswer
	if err := json.Unmarshal(data, &wrong); err != nil {
		p.logger.Printf("Failed to decode wrong questions: %v", err)
		return []model.WrongAnswer{}
	}
	if wrong == nil {
		wrong = []model.WrongAnswer{}
	}
	return wrong
}

// MemoryStorage is an in-process Storage. Nothing survives a restart.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty in-process store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
