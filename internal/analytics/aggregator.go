// Package analytics derives score statistics from the attempts of a single test.
// Everything here is pure: no I/O and no mutation of the inputs.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

const (
	// PassPercent is the share of total points needed to pass.
	PassPercent = 60
	// fullScoreTolerance absorbs float drift when comparing against total points.
	fullScoreTolerance = 0.01
	bucketCount        = 11
)

// Input is everything Compute needs about one test.
type Input struct {
	TestID    uint
	Questions []models.Question
	Attempts  []models.TestAttempt
}

type Report struct {
	TestID             uint `json:"test_id"`
	TotalPoints        int  `json:"total_points"`
	TotalAttempts      int  `json:"total_attempts"`
	CompletedAttempts  int  `json:"completed_attempts"`
	InProgressAttempts int  `json:"in_progress_attempts"`

	Scores       ScoreStats      `json:"scores"`
	Completion   CompletionStats `json:"completion"`
	Distribution []Bucket        `json:"distribution"`
	Questions    []QuestionStats `json:"questions"`

	GeneratedAt time.Time `json:"generated_at"`
}

type ScoreStats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	PassRate float64 `json:"pass_rate"` // percent of completed attempts
}

// CompletionStats are in seconds.
type CompletionStats struct {
	MeanSeconds float64 `json:"mean_seconds"`
	MinSeconds  float64 `json:"min_seconds"`
	MaxSeconds  float64 `json:"max_seconds"`
}

type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type QuestionStats struct {
	QuestionID    uint                `json:"question_id"`
	Text          string              `json:"text"`
	Kind          models.QuestionKind `json:"kind"`
	Points        int                 `json:"points"`
	AnswerCount   int                 `json:"answer_count"`
	SuccessRate   float64             `json:"success_rate"` // percent
	AveragePoints float64             `json:"average_points"`
	// ResponseFrequency is keyed by the raw response; multiple choice only.
	ResponseFrequency map[string]int `json:"response_frequency,omitempty"`
}

// Compute builds the report for in. now stamps GeneratedAt.
func Compute(in Input, now time.Time) Report {
	total := models.SumPoints(in.Questions)

	var completed []models.TestAttempt
	for _, a := range in.Attempts {
		if a.IsCompleted {
			completed = append(completed, a)
		}
	}

	scores := make([]float64, 0, len(completed))
	durations := make([]float64, 0, len(completed))
	for _, a := range completed {
		scores = append(scores, a.Score)
		if a.EndTime != nil {
			durations = append(durations, a.Duration().Seconds())
		}
	}

	return Report{
		TestID:             in.TestID,
		TotalPoints:        total,
		TotalAttempts:      len(in.Attempts),
		CompletedAttempts:  len(completed),
		InProgressAttempts: len(in.Attempts) - len(completed),
		Scores:             scoreStats(scores, total),
		Completion:         completionStats(durations),
		Distribution:       distribution(scores, total),
		Questions:          questionStats(in.Questions, completed),
		GeneratedAt:        now,
	}
}

func scoreStats(scores []float64, total int) ScoreStats {
	if len(scores) == 0 {
		return ScoreStats{}
	}

	avg := mean(scores)
	lo, hi := minMax(scores)

	passed := 0
	for _, s := range scores {
		if passes(s, total) {
			passed++
		}
	}

	return ScoreStats{
		Mean:     avg,
		Median:   median(scores),
		StdDev:   stdDev(scores, avg),
		Min:      lo,
		Max:      hi,
		PassRate: float64(passed) / float64(len(scores)) * 100,
	}
}

func completionStats(seconds []float64) CompletionStats {
	if len(seconds) == 0 {
		return CompletionStats{}
	}
	lo, hi := minMax(seconds)
	return CompletionStats{MeanSeconds: mean(seconds), MinSeconds: lo, MaxSeconds: hi}
}

// BucketLabels returns the histogram labels in order.
func BucketLabels() []string {
	labels := make([]string, 0, bucketCount)
	for i := 0; i < bucketCount-1; i++ {
		labels = append(labels, fmt.Sprintf("%d-%d%%", i*10, i*10+9))
	}
	return append(labels, "100%")
}

func distribution(scores []float64, total int) []Bucket {
	labels := BucketLabels()
	buckets := make([]Bucket, len(labels))
	for i, l := range labels {
		buckets[i] = Bucket{Label: l}
	}

	for _, s := range scores {
		buckets[bucketIndex(s, total)].Count++
	}
	return buckets
}

func bucketIndex(score float64, total int) int {
	if total > 0 && math.Abs(score-float64(total)) < fullScoreTolerance {
		return bucketCount - 1
	}
	if total <= 0 {
		return 0
	}
	idx := int(score*10/float64(total) + 1e-9)
	if idx < 0 {
		return 0
	}
	if idx > bucketCount-2 {
		return bucketCount - 2
	}
	return idx
}

func questionStats(questions []models.Question, completed []models.TestAttempt) []QuestionStats {
	sorted := make([]models.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	answers := make(map[uint][]models.Answer, len(sorted))
	for _, a := range completed {
		for _, ans := range a.Answers {
			answers[ans.QuestionID] = append(answers[ans.QuestionID], ans)
		}
	}

	stats := make([]QuestionStats, 0, len(sorted))
	for _, q := range sorted {
		qs := QuestionStats{QuestionID: q.ID, Text: q.Text, Kind: q.Kind, Points: q.Points}
		list := answers[q.ID]
		qs.AnswerCount = len(list)

		if q.Kind == models.KindMultipleChoice {
			qs.ResponseFrequency = map[string]int{}
		}

		if len(list) > 0 {
			full, sum := 0, 0.0
			for _, ans := range list {
				sum += ans.PointsAwarded
				if math.Abs(ans.PointsAwarded-float64(q.Points)) < fullScoreTolerance {
					full++
				}
				if qs.ResponseFrequency != nil {
					qs.ResponseFrequency[string(ans.Response)]++
				}
			}
			qs.SuccessRate = float64(full) / float64(len(list)) * 100
			qs.AveragePoints = sum / float64(len(list))
		}
		stats = append(stats, qs)
	}
	return stats
}

// passes treats a zero total as 0%, which never passes.
func passes(score float64, total int) bool {
	if total <= 0 {
		return false
	}
	return score*100 >= PassPercent*float64(total)
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// stdDev is the population standard deviation.
func stdDev(xs []float64, avg float64) float64 {
	variance := 0.0
	for _, x := range xs {
		d := x - avg
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
