package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindTrueFalse      QuestionKind = "true_false"
	KindShortAnswer    QuestionKind = "short_answer"
	KindDragDrop       QuestionKind = "drag_drop"
	KindImageHotspot   QuestionKind = "image_hotspot"
)

// QuestionKinds lists every supported kind in a stable order.
var QuestionKinds = []QuestionKind{
	KindMultipleChoice,
	KindTrueFalse,
	KindShortAnswer,
	KindDragDrop,
	KindImageHotspot,
}

func (k QuestionKind) Valid() bool {
	for _, known := range QuestionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Question is a tagged union: Kind selects which payload struct Payload decodes into.
type Question struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	TestID   uint         `json:"test_id" gorm:"not null;index"`
	Text     string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Points   int          `json:"points" gorm:"not null;default:1" validate:"min=0,max=1000"`
	Position int          `json:"position" gorm:"not null;default:0;index"`
	Kind     QuestionKind `json:"kind" gorm:"not null;size:32;index"`

	// Payload is serialized only here; use Content() for the structured form.
	Payload datatypes.JSON `json:"payload" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionContent is implemented by every per-kind payload.
type QuestionContent interface {
	Kind() QuestionKind
}

// ===== QUESTION CONTENT SCHEMAS =====

type MultipleChoiceContent struct {
	Options        []string `json:"options" validate:"min=2,max=20,dive,required"`
	CorrectAnswers []string `json:"correct_answers" validate:"min=1"`
	AllowMultiple  bool     `json:"allow_multiple"`
}

func (MultipleChoiceContent) Kind() QuestionKind { return KindMultipleChoice }

type TrueFalseContent struct {
	CorrectAnswer bool `json:"correct_answer"`
}

func (TrueFalseContent) Kind() QuestionKind { return KindTrueFalse }

type ShortAnswerContent struct {
	ExpectedAnswer string `json:"expected_answer" validate:"required,max=500"`
	CaseSensitive  bool   `json:"case_sensitive"`
}

func (ShortAnswerContent) Kind() QuestionKind { return KindShortAnswer }

type DragDropContent struct {
	Items []DragItem `json:"items" validate:"min=1,dive"`
	Zones []DropZone `json:"zones" validate:"min=1,dive"`
}

func (DragDropContent) Kind() QuestionKind { return KindDragDrop }

type DragItem struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text" validate:"required"`
}

type DropZone struct {
	ID           string   `json:"id" validate:"required"`
	Label        string   `json:"label"`
	CorrectItems []string `json:"correct_items"`
	OrderMatters bool     `json:"order_matters"`
}

type HotspotMode string

const (
	HotspotModeHotspot       HotspotMode = "hotspot"
	HotspotModeLabeling      HotspotMode = "labeling"
	HotspotModeClickSequence HotspotMode = "click_sequence"
)

type ImageHotspotContent struct {
	ImageURL string        `json:"image_url" validate:"required"`
	Mode     HotspotMode   `json:"mode" validate:"required,hotspot_mode"`
	Areas    []HotspotArea `json:"areas" validate:"min=1,dive"`
	Sequence []string      `json:"sequence"`
}

func (ImageHotspotContent) Kind() QuestionKind { return KindImageHotspot }

// HotspotArea is an axis-aligned rectangle on the image.
type HotspotArea struct {
	ID      string  `json:"id" validate:"required"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width" validate:"gte=0"`
	Height  float64 `json:"height" validate:"gte=0"`
	Correct bool    `json:"correct"`
	Label   string  `json:"label"`
}

// Contains reports whether p lies inside the area, edges included.
func (a HotspotArea) Contains(p Point) bool {
	return p.X >= a.X && p.X <= a.X+a.Width && p.Y >= a.Y && p.Y <= a.Y+a.Height
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Content decodes Payload into the struct selected by Kind.
func (q *Question) Content() (QuestionContent, error) {
	return DecodeContent(q.Kind, json.RawMessage(q.Payload))
}

// DecodeContent decodes a raw payload for the given kind.
func DecodeContent(kind QuestionKind, raw json.RawMessage) (QuestionContent, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload for %s question", kind)
	}

	var content QuestionContent
	switch kind {
	case KindMultipleChoice:
		var c MultipleChoiceContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		content = c
	case KindTrueFalse:
		var c TrueFalseContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		content = c
	case KindShortAnswer:
		var c ShortAnswerContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		content = c
	case KindDragDrop:
		var c DragDropContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		content = c
	case KindImageHotspot:
		var c ImageHotspotContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		content = c
	default:
		return nil, fmt.Errorf("unsupported question kind: %s", kind)
	}
	return content, nil
}

// EncodeContent serializes a payload for storage.
func EncodeContent(content QuestionContent) (datatypes.JSON, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", content.Kind(), err)
	}
	return datatypes.JSON(data), nil
}
