package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"timedquiz/internal/model"
)

// ErrDataUnavailable is returned when the question bank cannot be read or parsed
var ErrDataUnavailable = errors.New("question bank unavailable")

// QuestionRepo is the read side of the static question bank
type QuestionRepo interface {
	GetByCategory(ctx context.Context, category model.Category) ([]model.QuestionRecord, error)
}

// bankFiles maps each category to its file name inside the bank directory
var bankFiles = map[model.Category]string{
	model.CategorySingle:   "single.json",
	model.CategoryMultiple: "multiple.json",
}

// BankFile returns the file name holding category's questions
func BankFile(category model.Category) string {
	return bankFiles[category]
}

type fileQuestionRepo struct {
	dir string
}

// NewFileQuestionRepo creates a repository over single.json/multiple.json in dir.
// Files are re-read on every call.
func NewFileQuestionRepo(dir string) QuestionRepo {
	return &fileQuestionRepo{dir: dir}
}

func (r *fileQuestionRepo) GetByCategory(ctx context.Context, category model.Category) ([]model.QuestionRecord, error) {
	name, ok := bankFiles[category]
	if !ok {
		return nil, errors.Errorf("unknown category %q", category)
	}
	path := filepath.Join(r.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "read %s: %v", path, err)
	}

	var records []model.QuestionRecord
	if err := json.UnmarshalContext(ctx, data, &records); err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "parse %s: %v", path, err)
	}
	return records, nil
}

// MongoQuestionRepo stores each category in its own collection
type MongoQuestionRepo interface {
	QuestionRepo
	ReplaceCategory(ctx context.Context, category model.Category, records []model.QuestionRecord) error
}

var mongoCollections = map[model.Category]string{
	model.CategorySingle:   "single_choice",
	model.CategoryMultiple: "multiple_choice",
}

type mongoQuestionRepo struct {
	db *mongo.Database
}

// NewMongoQuestionRepo creates a question repository backed by MongoDB
func NewMongoQuestionRepo(db *mongo.Database) MongoQuestionRepo {
	return &mongoQuestionRepo{db: db}
}

func (r *mongoQuestionRepo) collection(category model.Category) (*mongo.Collection, error) {
	name, ok := mongoCollections[category]
	if !ok {
		return nil, errors.Errorf("unknown category %q", category)
	}
	return r.db.Collection(name), nil
}

func (r *mongoQuestionRepo) GetByCategory(ctx context.Context, category model.Category) ([]model.QuestionRecord, error) {
	coll, err := r.collection(category)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "find %s: %v", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var records []model.QuestionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "decode %s: %v", coll.Name(), err)
	}
	return records, nil
}

// ReplaceCategory drops every stored question of category and inserts records
func (r *mongoQuestionRepo) ReplaceCategory(ctx context.Context, category model.Category, records []model.QuestionRecord) error {
	coll, err := r.collection(category)
	if err != nil {
		return err
	}

	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return errors.Wrapf(err, "failed to clear %s", coll.Name())
	}
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = rec
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return errors.Wrapf(err, "failed to insert into %s", coll.Name())
	}
	return nil
}
