package service

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"timedquiz/internal/model"
	"timedquiz/internal/repository"
)

// Sample returns min(count, len(pool)) distinct records drawn at random from pool.
// The pool itself is left untouched.
func Sample(pool []model.QuestionRecord, count int, rng *rand.Rand) []model.QuestionRecord {
	if count <= 0 || len(pool) == 0 {
		return []model.QuestionRecord{}
	}

	shuffled := make([]model.QuestionRecord, len(pool))
	for i, rec := range pool {
		shuffled[i] = rec.Clone()
	}
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}

// SamplingService draws random question sets from the bank
type SamplingService struct {
	questionRepo repository.QuestionRepo

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSamplingService creates a new sampling service
func NewSamplingService(questionRepo repository.QuestionRepo) *SamplingService {
	return &SamplingService{
		questionRepo: questionRepo,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the random source, mostly for deterministic tests
func (s *SamplingService) WithRand(rng *rand.Rand) *SamplingService {
	s.rng = rng
	return s
}

// GetQuestions samples each category independently and attaches its fixed weight
func (s *SamplingService) GetQuestions(ctx context.Context, singleCount, multipleCount int) (*model.QuestionSet, error) {
	singles, err := s.sampleCategory(ctx, model.CategorySingle, singleCount)
	if err != nil {
		return nil, err
	}
	multiples, err := s.sampleCategory(ctx, model.CategoryMultiple, multipleCount)
	if err != nil {
		return nil, err
	}

	log.Printf("Sampled %d single and %d multiple questions", len(singles), len(multiples))

	return &model.QuestionSet{
		SingleChoice: model.CategorySample{
			Questions:  singles,
			TotalScore: model.SingleTotalScore,
		},
		MultipleChoice: model.CategorySample{
			Questions:  multiples,
			TotalScore: model.MultipleTotalScore,
		},
	}, nil
}

func (s *SamplingService) sampleCategory(ctx context.Context, category model.Category, count int) ([]model.QuestionRecord, error) {
	pool, err := s.questionRepo.GetByCategory(ctx, category)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s questions", category)
	}

	// *rand.Rand is not safe for concurrent use
	s.mu.Lock()
	defer s.mu.Unlock()
	return Sample(pool, count, s.rng), nil
}
