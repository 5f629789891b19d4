package importer

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"timedquiz/internal/model"
)

// Validate checks that records form a usable bank for category. Every problem
// found is reported, not just the first.
func Validate(category model.Category, records []model.QuestionRecord) error {
	var result *multierror.Error
	seen := make(map[int]bool, len(records))

	for _, rec := range records {
		if seen[rec.ID] {
			result = multierror.Append(result, errors.Errorf("question %d: duplicate id", rec.ID))
		}
		seen[rec.ID] = true

		if err := validateRecord(category, rec); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func validateRecord(category model.Category, rec model.QuestionRecord) error {
	var result *multierror.Error
	fail := func(format string, args ...interface{}) {
		result = multierror.Append(result, errors.Errorf("question %d: "+format, append([]interface{}{rec.ID}, args...)...))
	}

	if rec.Type != category {
		fail("type %q does not belong in the %s bank", rec.Type, category)
	}
	if strings.TrimSpace(rec.Question) == "" {
		fail("empty prompt")
	}
	if len(rec.Options) == 0 {
		fail("no options")
	}
	for i, opt := range rec.Options {
		if strings.TrimSpace(opt) == "" {
			fail("option %s is empty", model.OptionLetter(i))
		}
	}

	letters := rec.Answer.Letters()
	switch {
	case len(letters) == 0:
		fail("no answer")
	case rec.Type == model.CategorySingle && len(letters) != 1:
		fail("single-answer question has %d answer letters", len(letters))
	case rec.Type == model.CategoryMultiple && len(letters) < 2:
		fail("multiple-answer question has %d answer letter", len(letters))
	}

	used := make(map[string]bool, len(letters))
	for _, l := range letters {
		if used[l] {
			fail("answer letter %s repeated", l)
		}
		used[l] = true
		if len(rec.Options) > 0 && (len(l) != 1 || l[0] < 'A' || int(l[0]-'A') >= len(rec.Options)) {
			fail("answer letter %s is outside options A-%s", l, model.OptionLetter(len(rec.Options)-1))
		}
	}
	return result.ErrorOrNil()
}
