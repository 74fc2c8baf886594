package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/grading"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
)

const (
	ownerID    = "teacher-1"
	strangerID = "teacher-2"
)

type sentEmail struct {
	to, subject, body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	fail error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, body: htmlBody})
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testEnv struct {
	store     *fakeStore
	clock     time.Time
	publisher *events.MockEventPublisher
	sender    *fakeSender
	cache     *cache.CacheManager

	subscriptions *subscriptionService
	tests         *testService
	questions     *questionService
	invites       *inviteService
	attempts      *attemptService
	analytics     *analyticsService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCache(t, cache.NewCacheManager(nil))
}

func newTestEnvWithCache(t *testing.T, cm *cache.CacheManager) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     newFakeStore(),
		clock:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		publisher: events.NewMockEventPublisher(discardLogger()),
		sender:    &fakeSender{},
		cache:     cm,
	}
	now := func() time.Time { return env.clock }
	env.store.clock = now
	env.store.users[ownerID] = models.User{ID: ownerID, DisplayName: "Ada Teacher", Role: models.RoleTeacher}

	repo := env.store.repo()
	logger := discardLogger()
	v := validator.New()

	env.subscriptions = NewSubscriptionService(repo, env.publisher, logger, v).(*subscriptionService)
	env.subscriptions.now = now
	env.tests = NewTestService(repo, env.subscriptions, env.publisher, logger, v).(*testService)
	env.tests.now = now
	env.questions = NewQuestionService(repo, env.subscriptions, logger, v).(*questionService)
	env.invites = NewInviteService(repo, env.subscriptions, env.sender, env.publisher, logger, v, "https://tests.example.com").(*inviteService)
	env.invites.now = now
	env.analytics = NewAnalyticsService(repo, cm, logger).(*analyticsService)
	env.analytics.now = now
	env.attempts = NewAttemptService(repo, grading.NewGrader(), env.analytics, env.publisher, logger, v, FixedSeed(42)).(*attemptService)
	env.attempts.now = now

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func (e *testEnv) createTest(t *testing.T, name string) *models.Test {
	t.Helper()
	test, err := e.tests.Create(context.Background(), &models.TestCreateRequest{Name: name}, ownerID)
	require.NoError(t, err)
	return test
}

const pickBPayload = `{"options":["A","B","C"],"correct_answers":["B"],"allow_multiple":false}`

func (e *testEnv) addQuestion(t *testing.T, testID uint, kind models.QuestionKind, points int, payload string) *models.Question {
	t.Helper()
	q, err := e.questions.Add(context.Background(), testID, &models.QuestionCreateRequest{
		Kind:    kind,
		Text:    "Question " + string(kind),
		Points:  points,
		Payload: json.RawMessage(payload),
	}, ownerID)
	require.NoError(t, err)
	return q
}

// publishedTest returns an active test holding one five-point multiple choice question
func (e *testEnv) publishedTest(t *testing.T) (*models.Test, *models.Question) {
	t.Helper()
	test := e.createTest(t, "Algebra")
	q := e.addQuestion(t, test.ID, models.KindMultipleChoice, 5, pickBPayload)
	test, err := e.tests.Publish(context.Background(), test.ID, ownerID)
	require.NoError(t, err)
	return test, q
}

func (e *testEnv) invite(t *testing.T, testID uint, address string) *models.TestInvite {
	t.Helper()
	inv, err := e.invites.IssueInvite(context.Background(), testID, address, ownerID)
	require.NoError(t, err)
	return inv
}

func (e *testEnv) redeem(t *testing.T, token string) *models.TestAttempt {
	t.Helper()
	attempt, err := e.attempts.Redeem(context.Background(), &models.RedeemRequest{Token: token, FirstName: "Grace", LastName: "Student"})
	require.NoError(t, err)
	return attempt
}

var errSMTP = errors.New("smtp: connection refused")
