package validator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// BusinessValidator handles rules that need more than struct tags
type BusinessValidator struct {
	validate *validator.Validate
}

// allowedTransitions lists the manual status changes an owner may make.
// Scheduled -> Active and Active -> Closed also happen automatically.
var allowedTransitions = map[models.TestStatus][]models.TestStatus{
	models.TestDraft:     {models.TestActive, models.TestScheduled, models.TestArchived},
	models.TestScheduled: {models.TestDraft, models.TestActive, models.TestArchived},
	models.TestActive:    {models.TestClosed, models.TestArchived},
	models.TestClosed:    {models.TestActive, models.TestScheduled, models.TestArchived},
	models.TestArchived:  {models.TestClosed},
}

// ValidateStatusTransition validates a manual test status change
func (bv *BusinessValidator) ValidateStatusTransition(current, next models.TestStatus, questionCount int) ValidationErrors {
	var errs ValidationErrors

	allowed := false
	for _, s := range allowedTransitions[current] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		errs = append(errs, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
			Value:   next,
			Rule:    "status_transition",
		})
	}

	// Publishing needs something to answer
	if (next == models.TestActive || next == models.TestScheduled) && questionCount == 0 {
		errs = append(errs, ValidationError{
			Field:   "questions",
			Message: "test must have at least one question",
			Value:   questionCount,
			Rule:    "business_logic",
		})
	}

	return errs
}

// ValidateSchedule validates a scheduling window
func (bv *BusinessValidator) ValidateSchedule(req *models.ScheduleRequest, now time.Time) ValidationErrors {
	errs := ToValidationErrors(bv.validate.Struct(req))

	if !req.End.After(req.Start) {
		if !hasField(errs, "end") {
			errs = append(errs, ValidationError{Field: "end", Message: "must be after start", Value: req.End, Rule: "business_logic"})
		}
	}
	if req.AutoClose && !req.End.After(now) {
		errs = append(errs, ValidationError{Field: "end", Message: "must be in the future", Value: req.End, Rule: "business_logic"})
	}

	return errs
}

// ValidateTags rejects blank and duplicate tags
func (bv *BusinessValidator) ValidateTags(tags []string) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]bool, len(tags))
	for i, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tags[%d]", i), Message: "tag cannot be empty", Value: tag, Rule: "business_logic"})
			continue
		}
		if seen[normalized] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tags[%d]", i), Message: "duplicate tag", Value: tag, Rule: "business_logic"})
		}
		seen[normalized] = true
	}
	return errs
}

// ValidateQuestionPayload decodes raw for kind and checks it is gradable.
func (bv *BusinessValidator) ValidateQuestionPayload(kind models.QuestionKind, raw json.RawMessage) (models.QuestionContent, ValidationErrors) {
	if !kind.Valid() {
		return nil, ValidationErrors{{Field: "kind", Message: fmt.Sprintf("must be one of %s", joinKinds()), Value: kind, Rule: "question_kind"}}
	}

	content, err := models.DecodeContent(kind, raw)
	if err != nil {
		return nil, ValidationErrors{{Field: "payload", Message: fmt.Sprintf("invalid %s payload: %v", kind, err), Rule: "payload"}}
	}

	errs := prefix("payload", ToValidationErrors(bv.validate.Struct(content)))

	switch c := content.(type) {
	case models.MultipleChoiceContent:
		errs = append(errs, multipleChoiceRules(c)...)
	case models.DragDropContent:
		errs = append(errs, dragDropRules(c)...)
	case models.ImageHotspotContent:
		errs = append(errs, hotspotRules(c)...)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return content, nil
}

func multipleChoiceRules(c models.MultipleChoiceContent) ValidationErrors {
	var errs ValidationErrors

	options := make(map[string]bool, len(c.Options))
	for i, o := range c.Options {
		if options[o] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("payload.options[%d]", i), Message: "duplicate option", Value: o, Rule: "business_logic"})
		}
		options[o] = true
	}
	for i, a := range c.CorrectAnswers {
		if !options[a] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("payload.correct_answers[%d]", i), Message: "is not one of the options", Value: a, Rule: "business_logic"})
		}
	}
	if !c.AllowMultiple && len(c.CorrectAnswers) > 1 {
		errs = append(errs, ValidationError{Field: "payload.correct_answers", Message: "single-select questions take one correct answer", Value: len(c.CorrectAnswers), Rule: "business_logic"})
	}
	return errs
}

func dragDropRules(c models.DragDropContent) ValidationErrors {
	var errs ValidationErrors

	items := make(map[string]bool, len(c.Items))
	for i, item := range c.Items {
		if items[item.ID] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("payload.items[%d].id", i), Message: "duplicate item id", Value: item.ID, Rule: "business_logic"})
		}
		items[item.ID] = true
	}

	zones := make(map[string]bool, len(c.Zones))
	for i, z := range c.Zones {
		if zones[z.ID] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("payload.zones[%d].id", i), Message: "duplicate zone id", Value: z.ID, Rule: "business_logic"})
		}
		zones[z.ID] = true
		for j, itemID := range z.CorrectItems {
			if !items[itemID] {
				errs = append(errs, ValidationError{Field: fmt.Sprintf("payload.zones[%d].correct_items[%d]", i, j), Message: "references an unknown item", Value: itemID, Rule: "business_logic"})
			}
		}
	}
	return errs
}

func hotspotRules(c models.ImageHotspotContent) ValidationErrors {
	var errs ValidationErrors

	areas := make(map[string]bool, len(c.Areas))
	correct, labeled := 0, 0
	for i, a := range c.Areas {
		if areas[a.ID] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("payload.areas[%d].id", i), Message: "duplicate area id", Value: a.ID, Rule: "business_logic"})
		}
		areas[a.ID] = true
		if a.Correct {
			correct++
		}
		if a.Label != "" {
			labeled++
		}
	}

	switch c.Mode {
	case models.HotspotModeHotspot:
		if correct == 0 {
			errs = append(errs, ValidationError{Field: "payload.areas", Message: "at least one area must be correct", Rule: "business_logic"})
		}
	case models.HotspotModeLabeling:
		if labeled == 0 {
			errs = append(errs, ValidationError{Field: "payload.areas", Message: "at least one area must carry a label", Rule: "business_logic"})
		}
	case models.HotspotModeClickSequence:
		if len(c.Sequence) == 0 {
			errs = append(errs, ValidationError{Field: "payload.sequence", Message: "is required for click_sequence", Rule: "business_logic"})
		}
		for i, id := range c.Sequence {
			if !areas[id] {
				errs = append(errs, ValidationError{Field: fmt.Sprintf("payload.sequence[%d]", i), Message: "references an unknown area", Value: id, Rule: "business_logic"})
			}
		}
	}
	return errs
}

func prefix(p string, errs ValidationErrors) ValidationErrors {
	for i := range errs {
		errs[i].Field = p + "." + errs[i].Field
	}
	return errs
}

func hasField(errs ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
