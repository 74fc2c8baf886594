package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

func TestQuestionService_AddStoresCanonicalPayload(t *testing.T) {
	env := newTestEnv(t)
	test := env.createTest(t, "Quiz")

	q := env.addQuestion(t, test.ID, models.KindMultipleChoice, 5,
		`{"options":["A","B","C"],"correct_answers":["B"],"allow_multiple":false,"extra":"ignored"}`)

	assert.Equal(t, 1, q.Position)
	assert.NotContains(t, string(q.Payload), "extra")

	content, err := q.Content()
	require.NoError(t, err)
	mc, ok := content.(models.MultipleChoiceContent)
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, mc.CorrectAnswers)

	second := env.addQuestion(t, test.ID, models.KindTrueFalse, 1, `{"correct_answer":false}`)
	assert.Equal(t, 2, second.Position)
}

func TestQuestionService_RejectsBadPayloads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	test := env.createTest(t, "Quiz")

	cases := []struct {
		name    string
		kind    models.QuestionKind
		payload string
	}{
		{name: "correct answer not an option", kind: models.KindMultipleChoice, payload: `{"options":["A","B"],"correct_answers":["C"]}`},
		{name: "single select with two answers", kind: models.KindMultipleChoice, payload: `{"options":["A","B"],"correct_answers":["A","B"]}`},
		{name: "short answer without expectation", kind: models.KindShortAnswer, payload: `{"expected_answer":""}`},
		{name: "drag drop without zones", kind: models.KindDragDrop, payload: `{"items":[{"id":"i1","text":"x"}],"zones":[]}`},
		{name: "unknown kind", kind: "essay", payload: `{}`},
		{name: "malformed json", kind: models.KindTrueFalse, payload: `{"correct_answer":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.questions.Add(ctx, test.ID, &models.QuestionCreateRequest{
				Kind:    tc.kind,
				Text:    "Q",
				Points:  1,
				Payload: json.RawMessage(tc.payload),
			}, ownerID)
			var verrs ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}

	qs, err := env.questions.List(ctx, test.ID, ownerID)
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestQuestionService_FreeTierLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	test := env.createTest(t, "Long quiz")

	for i := 0; i < 10; i++ {
		env.addQuestion(t, test.ID, models.KindTrueFalse, 1, `{"correct_answer":true}`)
	}

	_, err := env.questions.Add(ctx, test.ID, &models.QuestionCreateRequest{
		Kind:    models.KindTrueFalse,
		Text:    "Eleventh",
		Points:  1,
		Payload: json.RawMessage(`{"correct_answer":true}`),
	}, ownerID)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	var rule *BusinessRuleError
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, "question_limit", rule.Rule)

	allowed, err := env.subscriptions.CanAddQuestion(ctx, test)
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = env.subscriptions.SetTier(ctx, ownerID, models.TierPro)
	require.NoError(t, err)
	env.addQuestion(t, test.ID, models.KindTrueFalse, 1, `{"correct_answer":true}`)
}

func TestQuestionService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	test := env.createTest(t, "Quiz")
	other := env.createTest(t, "Other")
	q := env.addQuestion(t, test.ID, models.KindShortAnswer, 2, `{"expected_answer":"Paris"}`)

	text := "Capital of France?"
	points := 3
	updated, err := env.questions.Update(ctx, test.ID, q.ID, &models.QuestionUpdateRequest{
		Text:    &text,
		Points:  &points,
		Payload: json.RawMessage(`{"expected_answer":"Paris","case_sensitive":true}`),
	}, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "Capital of France?", updated.Text)
	assert.Equal(t, 3, updated.Points)
	assert.Contains(t, string(updated.Payload), `"case_sensitive":true`)

	_, err = env.questions.Update(ctx, other.ID, q.ID, &models.QuestionUpdateRequest{Text: &text}, ownerID)
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	assert.ErrorIs(t, env.questions.Delete(ctx, test.ID, q.ID, strangerID), ErrForbidden)
	require.NoError(t, env.questions.Delete(ctx, test.ID, q.ID, ownerID))
	assert.ErrorIs(t, env.questions.Delete(ctx, test.ID, q.ID, ownerID), ErrQuestionNotFound)
}

func TestQuestionService_Reorder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	test := env.createTest(t, "Quiz")
	a := env.addQuestion(t, test.ID, models.KindTrueFalse, 1, `{"correct_answer":true}`)
	b := env.addQuestion(t, test.ID, models.KindTrueFalse, 1, `{"correct_answer":true}`)
	c := env.addQuestion(t, test.ID, models.KindTrueFalse, 1, `{"correct_answer":true}`)

	reordered, err := env.questions.Reorder(ctx, test.ID, &models.ReorderRequest{QuestionIDs: []uint{c.ID, a.ID, b.ID}}, ownerID)
	require.NoError(t, err)
	require.Len(t, reordered, 3)
	assert.Equal(t, []uint{c.ID, a.ID, b.ID}, []uint{reordered[0].ID, reordered[1].ID, reordered[2].ID})
	assert.Equal(t, 1, reordered[0].Position)

	var verrs ValidationErrors
	_, err = env.questions.Reorder(ctx, test.ID, &models.ReorderRequest{QuestionIDs: []uint{a.ID, b.ID}}, ownerID)
	assert.ErrorAs(t, err, &verrs)
	_, err = env.questions.Reorder(ctx, test.ID, &models.ReorderRequest{QuestionIDs: []uint{a.ID, a.ID, b.ID}}, ownerID)
	assert.ErrorAs(t, err, &verrs)
	_, err = env.questions.Reorder(ctx, test.ID, &models.ReorderRequest{QuestionIDs: []uint{a.ID, b.ID, 999}}, ownerID)
	assert.ErrorAs(t, err, &verrs)
}

func TestQuestionService_ArchivedTestIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	test := env.createTest(t, "Quiz")
	q := env.addQuestion(t, test.ID, models.KindTrueFalse, 1, `{"correct_answer":true}`)

	_, err := env.tests.Archive(ctx, test.ID, ownerID)
	require.NoError(t, err)

	_, err = env.questions.Add(ctx, test.ID, &models.QuestionCreateRequest{
		Kind: models.KindTrueFalse, Text: "Q", Points: 1, Payload: json.RawMessage(`{"correct_answer":true}`),
	}, ownerID)
	assert.ErrorIs(t, err, ErrTestArchived)
	assert.ErrorIs(t, env.questions.Delete(ctx, test.ID, q.ID, ownerID), ErrTestArchived)
}
