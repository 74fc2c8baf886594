package validator

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

func TestValidate_RequestStructs(t *testing.T) {
	v := New()

	err := v.Validate(&models.TestCreateRequest{Name: "Algebra"})
	assert.NoError(t, err)

	err = v.Validate(&models.TestCreateRequest{})
	require.Error(t, err)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "name", verrs[0].Field)
	assert.Equal(t, "required", verrs[0].Rule)

	err = v.Validate(&models.IssueInvitesRequest{Emails: []string{"a@example.com", "nope"}})
	require.Error(t, err)
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "emails[1]", verrs[0].Field)
	assert.Equal(t, "must be a valid email address", verrs[0].Message)
}

func TestValidate_DomainRules(t *testing.T) {
	v := New()

	err := v.Validate(&models.QuestionCreateRequest{Kind: "essay", Text: "x", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind")

	assert.NoError(t, v.Validate(&models.BillingEvent{Type: models.BillingSubscriptionUpdated, Tier: models.TierPro}))
	assert.Error(t, v.Validate(&models.BillingEvent{Type: models.BillingSubscriptionUpdated, Tier: "gold"}))
}

func TestValidateQuestionPayload(t *testing.T) {
	bv := New().GetBusinessValidator()

	tests := []struct {
		name    string
		kind    models.QuestionKind
		payload string
		wantErr bool
	}{
		{"valid multiple choice", models.KindMultipleChoice, `{"options":["A","B"],"correct_answers":["A"]}`, false},
		{"correct answer not an option", models.KindMultipleChoice, `{"options":["A","B"],"correct_answers":["C"]}`, true},
		{"single select with two answers", models.KindMultipleChoice, `{"options":["A","B"],"correct_answers":["A","B"]}`, true},
		{"too few options", models.KindMultipleChoice, `{"options":["A"],"correct_answers":["A"]}`, true},
		{"true false", models.KindTrueFalse, `{"correct_answer":false}`, false},
		{"short answer missing expected", models.KindShortAnswer, `{"case_sensitive":true}`, true},
		{"drag drop unknown item", models.KindDragDrop, `{"items":[{"id":"a","text":"A"}],"zones":[{"id":"z","correct_items":["b"]}]}`, true},
		{"drag drop valid", models.KindDragDrop, `{"items":[{"id":"a","text":"A"}],"zones":[{"id":"z","correct_items":["a"]}]}`, false},
		{"hotspot without correct area", models.KindImageHotspot, `{"image_url":"u","mode":"hotspot","areas":[{"id":"a","width":1,"height":1}]}`, true},
		{"click sequence unknown area", models.KindImageHotspot, `{"image_url":"u","mode":"click_sequence","areas":[{"id":"a","width":1,"height":1}],"sequence":["b"]}`, true},
		{"bad mode", models.KindImageHotspot, `{"image_url":"u","mode":"paint","areas":[{"id":"a","correct":true}]}`, true},
		{"not json", models.KindTrueFalse, `nope`, true},
		{"unknown kind", "essay", `{}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, errs := bv.ValidateQuestionPayload(tt.kind, json.RawMessage(tt.payload))
			if tt.wantErr {
				assert.NotEmpty(t, errs)
				assert.Nil(t, content)
				return
			}
			assert.Empty(t, errs)
			require.NotNil(t, content)
			assert.Equal(t, tt.kind, content.Kind())
		})
	}
}

func TestValidateStatusTransition(t *testing.T) {
	bv := New().GetBusinessValidator()

	assert.Empty(t, bv.ValidateStatusTransition(models.TestDraft, models.TestActive, 3))
	assert.NotEmpty(t, bv.ValidateStatusTransition(models.TestDraft, models.TestActive, 0))
	assert.NotEmpty(t, bv.ValidateStatusTransition(models.TestDraft, models.TestClosed, 3))
	assert.Empty(t, bv.ValidateStatusTransition(models.TestArchived, models.TestClosed, 0))
	assert.NotEmpty(t, bv.ValidateStatusTransition(models.TestArchived, models.TestActive, 3))
}

func TestValidateSchedule(t *testing.T) {
	bv := New().GetBusinessValidator()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	ok := &models.ScheduleRequest{Start: now.Add(time.Hour), End: now.Add(2 * time.Hour), AutoPublish: true, AutoClose: true}
	assert.Empty(t, bv.ValidateSchedule(ok, now))

	inverted := &models.ScheduleRequest{Start: now.Add(2 * time.Hour), End: now.Add(time.Hour)}
	errs := bv.ValidateSchedule(inverted, now)
	require.Len(t, errs, 1)
	assert.Equal(t, "end", errs[0].Field)

	past := &models.ScheduleRequest{Start: now.Add(-2 * time.Hour), End: now.Add(-time.Hour), AutoClose: true}
	assert.NotEmpty(t, bv.ValidateSchedule(past, now))
}

func TestValidateTags(t *testing.T) {
	bv := New().GetBusinessValidator()

	assert.Empty(t, bv.ValidateTags([]string{"math", "algebra"}))
	assert.Len(t, bv.ValidateTags([]string{"math", " ", "Math"}), 2)
}
