// Package importer converts plain-text question banks into bank records.
//
// A text bank is a sequence of numbered questions. The answer letters sit in
// parentheses inside the prompt and the options follow as lettered items:
//
//	12. The capital of France is (B).
//	A. Lyon
//	B. Paris
//	C. Nice
//
// Full-width parentheses are accepted, and several letters separated by commas
// make a multiple-answer question.
package importer

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"timedquiz/internal/model"
)

var (
	questionStart = regexp.MustCompile(`^(\d+)\.`)
	optionMarker  = regexp.MustCompile(`[A-Z]\.`)
	answerMarker  = regexp.MustCompile(`[(（]([A-Z,]+)[)）]`)
)

// ParseText reads a text bank. Blocks that cannot be parsed are skipped and
// reported in the returned error; the records parsed so far are returned
// regardless.
func ParseText(r io.Reader) ([]model.QuestionRecord, error) {
	blocks, err := splitBlocks(r)
	if err != nil {
		return nil, err
	}

	records := make([]model.QuestionRecord, 0, len(blocks))
	var skipped *multierror.Error
	for _, block := range blocks {
		rec, err := parseBlock(block)
		if err != nil {
			skipped = multierror.Append(skipped, err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped.ErrorOrNil()
}

func splitBlocks(r io.Reader) ([]string, error) {
	var blocks []string
	var current strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if questionStart.MatchString(line) && current.Len() > 0 {
			blocks = append(blocks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read text bank")
	}
	if strings.TrimSpace(current.String()) != "" {
		blocks = append(blocks, current.String())
	}
	return blocks, nil
}

func parseBlock(block string) (model.QuestionRecord, error) {
	block = strings.TrimSpace(block)
	head := questionStart.FindStringSubmatch(block)
	if head == nil {
		return model.QuestionRecord{}, errors.Errorf("block does not start with a question number: %.40q", block)
	}
	id, err := strconv.Atoi(head[1])
	if err != nil {
		return model.QuestionRecord{}, errors.Wrapf(err, "invalid question number %q", head[1])
	}

	body := block[len(head[0]):]
	markers := optionMarker.FindAllStringIndex(body, -1)

	prompt := body
	if len(markers) > 0 {
		prompt = body[:markers[0][0]]
	}
	prompt = strings.TrimSpace(prompt)

	answer := answerMarker.FindStringSubmatch(prompt)
	if answer == nil {
		return model.QuestionRecord{}, errors.Errorf("question %d has no answer in parentheses", id)
	}
	var letters []string
	for _, l := range strings.Split(answer[1], ",") {
		if l != "" {
			letters = append(letters, l)
		}
	}
	prompt = answerMarker.ReplaceAllString(prompt, "()")

	options := make([]string, 0, len(markers))
	for i, m := range markers {
		end := len(body)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		options = append(options, strings.TrimSpace(body[m[1]:end]))
	}

	category := model.CategorySingle
	if len(letters) > 1 {
		category = model.CategoryMultiple
	}

	return model.QuestionRecord{
		ID:       id,
		Type:     category,
		Question: prompt,
		Options:  options,
		Answer:   model.AnswerKey(strings.Join(letters, "")),
	}, nil
}

// Split partitions records by category, keeping their order
func Split(records []model.QuestionRecord) map[model.Category][]model.QuestionRecord {
	out := make(map[model.Category][]model.QuestionRecord, len(model.Categories))
	for _, c := range model.Categories {
		out[c] = []model.QuestionRecord{}
	}
	for _, rec := range records {
		out[rec.Type] = append(out[rec.Type], rec)
	}
	return out
}
