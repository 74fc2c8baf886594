package services

import (
	"encoding/json"
	"math/rand/v2"
	"sort"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// SeedSource provides the shuffle seed stored on each new attempt
type SeedSource interface {
	Seed() int64
}

type randomSeeds struct{}

func (randomSeeds) Seed() int64 { return rand.Int64() }

// FixedSeed always returns the same seed
type FixedSeed int64

func (f FixedSeed) Seed() int64 { return int64(f) }

// orderQuestions returns the questions in position order, or shuffled with a
// generator seeded by seed. The same seed always yields the same order.
func orderQuestions(questions []models.Question, randomize bool, seed int64) []models.Question {
	ordered := make([]models.Question, len(questions))
	copy(ordered, questions)
	if !randomize {
		return ordered
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	r.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	return ordered
}

// Payload shapes shown to test takers; answer keys are left out.

type studentChoicePayload struct {
	Options       []string `json:"options"`
	AllowMultiple bool     `json:"allow_multiple"`
}

type studentDragDropPayload struct {
	Items []models.DragItem `json:"items"`
	Zones []studentZone     `json:"zones"`
}

type studentZone struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	OrderMatters bool   `json:"order_matters"`
}

type studentHotspotPayload struct {
	ImageURL string             `json:"image_url"`
	Mode     models.HotspotMode `json:"mode"`
	Areas    []studentArea      `json:"areas,omitempty"`
	Labels   []string           `json:"labels,omitempty"`
	Steps    int                `json:"steps,omitempty"`
}

type studentArea struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// studentPayload strips everything that would reveal the answer
func studentPayload(q *models.Question) json.RawMessage {
	content, err := q.Content()
	if err != nil {
		return json.RawMessage("{}")
	}

	var view interface{}
	switch c := content.(type) {
	case models.MultipleChoiceContent:
		view = studentChoicePayload{Options: c.Options, AllowMultiple: c.AllowMultiple}
	case models.DragDropContent:
		zones := make([]studentZone, len(c.Zones))
		for i, z := range c.Zones {
			zones[i] = studentZone{ID: z.ID, Label: z.Label, OrderMatters: z.OrderMatters}
		}
		view = studentDragDropPayload{Items: c.Items, Zones: zones}
	case models.ImageHotspotContent:
		view = hotspotView(c)
	default:
		view = struct{}{}
	}

	data, err := json.Marshal(view)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func hotspotView(c models.ImageHotspotContent) studentHotspotPayload {
	view := studentHotspotPayload{ImageURL: c.ImageURL, Mode: c.Mode}

	switch c.Mode {
	case models.HotspotModeLabeling:
		seen := make(map[string]bool)
		for _, a := range c.Areas {
			view.Areas = append(view.Areas, studentArea{ID: a.ID, X: a.X, Y: a.Y, Width: a.Width, Height: a.Height})
			if a.Label != "" && !seen[a.Label] {
				seen[a.Label] = true
				view.Labels = append(view.Labels, a.Label)
			}
		}
		sort.Strings(view.Labels)
	case models.HotspotModeClickSequence:
		view.Steps = len(c.Sequence)
	}
	return view
}

func toStudentQuestions(questions []models.Question) []models.StudentQuestion {
	out := make([]models.StudentQuestion, len(questions))
	for i := range questions {
		q := &questions[i]
		out[i] = models.StudentQuestion{
			ID:       q.ID,
			Kind:     q.Kind,
			Text:     q.Text,
			Points:   q.Points,
			Position: q.Position,
			Payload:  studentPayload(q),
		}
	}
	return out
}
