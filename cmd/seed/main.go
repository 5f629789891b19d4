// Command seed builds and loads question banks.
//
//	seed convert -in single.txt -out data    text bank -> single.json / multiple.json
//	seed load -dir data                      JSON bank -> MongoDB (MONGO_URI, MONGO_DB)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"timedquiz/internal/app"
	"timedquiz/internal/config"
	"timedquiz/internal/importer"
	"timedquiz/internal/model"
	"timedquiz/internal/repository"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "convert":
		err = convert(os.Args[2:])
	case "load":
		err = load(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: seed convert -in <bank.txt>... -out <dir> | seed load -dir <dir>")
	os.Exit(2)
}

func convert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	out := fs.String("out", "data", "directory for single.json and multiple.json")
	var inputs multiFlag
	fs.Var(&inputs, "in", "text bank to convert (repeatable)")
	fs.Parse(args)

	if len(inputs) == 0 {
		return errors.New("at least one -in file is required")
	}

	var records []model.QuestionRecord
	for _, path := range inputs {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", path)
		}
		parsed, err := importer.ParseText(f)
		f.Close()
		if err != nil && parsed == nil {
			return errors.Wrapf(err, "failed to parse %s", path)
		}
		if err != nil {
			log.Printf("Skipped questions in %s: %v", path, err)
		}
		log.Printf("Parsed %d questions from %s", len(parsed), path)
		records = append(records, parsed...)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", *out)
	}

	for category, recs := range importer.Split(records) {
		if err := importer.Validate(category, recs); err != nil {
			return errors.Wrapf(err, "%s bank is invalid", category)
		}
		data, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s bank", category)
		}
		path := filepath.Join(*out, repository.BankFile(category))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		log.Printf("Wrote %d %s questions to %s", len(recs), category, path)
	}
	return nil
}

func load(args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	dir := fs.String("dir", "", "directory holding single.json and multiple.json (defaults to QUESTION_DIR)")
	fs.Parse(args)

	cfg, err := config.Load(config.Config{QuestionDir: *dir})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := app.New(cfg)
	defer func() {
		if err := a.Close(ctx); err != nil {
			log.Println(err)
		}
	}()

	db, err := a.MongoDB(ctx)
	if err != nil {
		return err
	}
	files := repository.NewFileQuestionRepo(cfg.QuestionDir)
	target := repository.NewMongoQuestionRepo(db)

	for _, category := range model.Categories {
		records, err := files.GetByCategory(ctx, category)
		if err != nil {
			return err
		}
		if err := importer.Validate(category, records); err != nil {
			return errors.Wrapf(err, "%s bank is invalid", category)
		}
		if err := target.ReplaceCategory(ctx, category, records); err != nil {
			return err
		}
		log.Printf("Loaded %d %s questions into %s", len(records), category, cfg.MongoDB)
	}
	return nil
}

type multiFlag []string

func (m *multiFlag) String() string {
	return fmt.Sprint(*m)
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
