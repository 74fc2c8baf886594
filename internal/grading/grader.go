package grading

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

type options struct {
	lenientMultiSelect bool
}

type Option func(*options)

// WithLenientMultiSelect grades multi-select questions as correct when the
// submitted options are a subset of the correct ones, the empty set included.
func WithLenientMultiSelect(enabled bool) Option {
	return func(o *options) { o.lenientMultiSelect = enabled }
}

// Grader awards all-or-nothing points per question.
type Grader struct {
	opts options
}

func NewGrader(opts ...Option) *Grader {
	g := &Grader{}
	for _, o := range opts {
		o(&g.opts)
	}
	return g
}

// IsCorrect reports whether raw answers q correctly under the grader's options.
func (g *Grader) IsCorrect(q *models.Question, raw json.RawMessage) bool {
	return validate(q, raw, g.opts)
}

// Grade returns q.Points for a correct response and 0 otherwise.
func (g *Grader) Grade(q *models.Question, raw json.RawMessage) float64 {
	if q.Points <= 0 || !g.IsCorrect(q, raw) {
		return 0
	}
	return float64(q.Points)
}

// Submission is the graded form of a set of responses, ready to persist.
type Submission struct {
	Answers            []models.Answer
	Score              float64
	MaxScore           int
	SkippedQuestionIDs []uint
}

// GradeSubmission grades responses against the questions of one test.
// Responses naming a question outside the test are skipped; for a repeated
// question ID only the first response counts.
func (g *Grader) GradeSubmission(questions []models.Question, responses []models.SubmittedResponse) Submission {
	byID := make(map[uint]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	result := Submission{
		Answers:            make([]models.Answer, 0, len(responses)),
		MaxScore:           models.SumPoints(questions),
		SkippedQuestionIDs: []uint{},
	}
	seen := make(map[uint]struct{}, len(responses))

	for _, r := range responses {
		q, ok := byID[r.QuestionID]
		if !ok {
			result.SkippedQuestionIDs = append(result.SkippedQuestionIDs, r.QuestionID)
			continue
		}
		if _, dup := seen[r.QuestionID]; dup {
			continue
		}
		seen[r.QuestionID] = struct{}{}

		points := g.Grade(q, r.Response)
		result.Answers = append(result.Answers, models.Answer{
			QuestionID:    q.ID,
			Response:      storedResponse(r.Response),
			PointsAwarded: points,
		})
		result.Score += points
	}

	return result
}

func storedResponse(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON("null")
	}
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(string(raw))
		return datatypes.JSON(quoted)
	}
	return datatypes.JSON(raw)
}
