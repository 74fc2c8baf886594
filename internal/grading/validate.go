// Package grading decides whether a submitted response is correct for a question
// and turns that verdict into awarded points.
package grading

import (
	"encoding/json"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// validateFunc checks a raw response against a decoded payload.
// Implementations must return false, never panic, on malformed input.
type validateFunc func(content models.QuestionContent, raw json.RawMessage, opts options) bool

var validators = map[models.QuestionKind]validateFunc{
	models.KindMultipleChoice: validateMultipleChoice,
	models.KindTrueFalse:      validateTrueFalse,
	models.KindShortAnswer:    validateShortAnswer,
	models.KindDragDrop:       validateDragDrop,
	models.KindImageHotspot:   validateImageHotspot,
}

// Validate reports whether raw is a correct response to q using default options.
func Validate(q *models.Question, raw json.RawMessage) bool {
	return validate(q, raw, options{})
}

func validate(q *models.Question, raw json.RawMessage, opts options) bool {
	if q == nil || len(raw) == 0 {
		return false
	}
	fn, ok := validators[q.Kind]
	if !ok {
		return false
	}
	content, err := q.Content()
	if err != nil {
		return false
	}
	return fn(content, raw, opts)
}

func validateMultipleChoice(content models.QuestionContent, raw json.RawMessage, opts options) bool {
	c, ok := content.(models.MultipleChoiceContent)
	if !ok {
		return false
	}
	submitted, ok := decodeStringList(raw)
	if !ok {
		return false
	}

	if !c.AllowMultiple {
		return equalSequence(submitted, c.CorrectAnswers)
	}
	if opts.lenientMultiSelect {
		return isSubset(submitted, c.CorrectAnswers)
	}
	return equalSet(submitted, c.CorrectAnswers)
}

func validateTrueFalse(content models.QuestionContent, raw json.RawMessage, _ options) bool {
	c, ok := content.(models.TrueFalseContent)
	if !ok {
		return false
	}
	var submitted bool
	if err := json.Unmarshal(raw, &submitted); err != nil {
		return false
	}
	return submitted == c.CorrectAnswer
}

func validateShortAnswer(content models.QuestionContent, raw json.RawMessage, _ options) bool {
	c, ok := content.(models.ShortAnswerContent)
	if !ok {
		return false
	}
	var submitted string
	if err := json.Unmarshal(raw, &submitted); err != nil {
		return false
	}
	if c.CaseSensitive {
		return submitted == c.ExpectedAnswer
	}
	return foldEqual(submitted, c.ExpectedAnswer)
}

func validateDragDrop(content models.QuestionContent, raw json.RawMessage, _ options) bool {
	c, ok := content.(models.DragDropContent)
	if !ok {
		return false
	}
	var placed map[string][]string
	if err := json.Unmarshal(raw, &placed); err != nil || placed == nil {
		return false
	}

	zones := make(map[string]models.DropZone, len(c.Zones))
	for _, z := range c.Zones {
		zones[z.ID] = z
	}
	for zoneID := range placed {
		if _, known := zones[zoneID]; !known {
			return false
		}
	}

	for _, z := range c.Zones {
		got := placed[z.ID]
		if z.OrderMatters {
			if !equalSequence(got, z.CorrectItems) {
				return false
			}
			continue
		}
		if !equalMultiset(got, z.CorrectItems) {
			return false
		}
	}
	return true
}

func validateImageHotspot(content models.QuestionContent, raw json.RawMessage, _ options) bool {
	c, ok := content.(models.ImageHotspotContent)
	if !ok {
		return false
	}
	switch c.Mode {
	case models.HotspotModeHotspot:
		return validateHotspotClicks(c, raw)
	case models.HotspotModeLabeling:
		return validateLabels(c, raw)
	case models.HotspotModeClickSequence:
		return validateClickSequence(c, raw)
	default:
		return false
	}
}

func validateHotspotClicks(c models.ImageHotspotContent, raw json.RawMessage) bool {
	var clicks []models.Point
	if err := json.Unmarshal(raw, &clicks); err != nil || len(clicks) == 0 {
		return false
	}

	var correct []models.HotspotArea
	for _, a := range c.Areas {
		if a.Correct {
			correct = append(correct, a)
		}
	}
	if len(correct) == 0 {
		return false
	}

	hit := make([]bool, len(correct))
	for _, p := range clicks {
		inside := false
		for i, a := range correct {
			if a.Contains(p) {
				hit[i] = true
				inside = true
			}
		}
		if !inside {
			return false
		}
	}
	for _, h := range hit {
		if !h {
			return false
		}
	}
	return true
}

func validateLabels(c models.ImageHotspotContent, raw json.RawMessage) bool {
	var labels map[string]string
	if err := json.Unmarshal(raw, &labels); err != nil || labels == nil {
		return false
	}

	areas := make(map[string]models.HotspotArea, len(c.Areas))
	expected := 0
	for _, a := range c.Areas {
		areas[a.ID] = a
		if a.Label != "" {
			expected++
		}
	}
	if expected == 0 {
		return false
	}

	for id := range labels {
		if _, known := areas[id]; !known {
			return false
		}
	}
	for _, a := range c.Areas {
		if a.Label == "" {
			continue
		}
		if got, ok := labels[a.ID]; !ok || got != a.Label {
			return false
		}
	}
	return true
}

func validateClickSequence(c models.ImageHotspotContent, raw json.RawMessage) bool {
	var clicks []models.Point
	if err := json.Unmarshal(raw, &clicks); err != nil {
		return false
	}
	if len(c.Sequence) == 0 || len(clicks) != len(c.Sequence) {
		return false
	}

	areas := make(map[string]models.HotspotArea, len(c.Areas))
	for _, a := range c.Areas {
		areas[a.ID] = a
	}
	for i, areaID := range c.Sequence {
		a, ok := areas[areaID]
		if !ok || !a.Contains(clicks[i]) {
			return false
		}
	}
	return true
}
