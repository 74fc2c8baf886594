package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

// fakeStore is an in-memory Repository. Conditional updates behave like
// their SQL counterparts and transactions roll back on error.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	clock  func() time.Time
	nextID uint

	tests     map[uint]models.Test
	created   []createdTest
	questions map[uint]models.Question
	invites   map[uint]models.TestInvite
	attempts  map[uint]models.TestAttempt
	answers   []models.Answer
	subs      map[string]models.Subscription
	users     map[string]models.User
}

type createdTest struct {
	ownerID string
	at      time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:     time.Now,
		tests:     map[uint]models.Test{},
		questions: map[uint]models.Question{},
		invites:   map[uint]models.TestInvite{},
		attempts:  map[uint]models.TestAttempt{},
		subs:      map[string]models.Subscription{},
		users:     map[string]models.User{},
	}
}

func (s *fakeStore) repo() *fakeRepo { return &fakeRepo{s: s} }

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

type fakeSnapshot struct {
	nextID    uint
	tests     map[uint]models.Test
	created   []createdTest
	questions map[uint]models.Question
	invites   map[uint]models.TestInvite
	attempts  map[uint]models.TestAttempt
	answers   []models.Answer
	subs      map[string]models.Subscription
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *fakeStore) snapshot() fakeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fakeSnapshot{
		nextID:    s.nextID,
		tests:     copyMap(s.tests),
		created:   append([]createdTest(nil), s.created...),
		questions: copyMap(s.questions),
		invites:   copyMap(s.invites),
		attempts:  copyMap(s.attempts),
		answers:   append([]models.Answer(nil), s.answers...),
		subs:      copyMap(s.subs),
	}
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.tests = snap.tests
	s.created = snap.created
	s.questions = snap.questions
	s.invites = snap.invites
	s.attempts = snap.attempts
	s.answers = snap.answers
	s.subs = snap.subs
}

type fakeRepo struct {
	s    *fakeStore
	inTx bool
}

func (r *fakeRepo) Test() repositories.TestRepository                 { return fakeTests{r.s} }
func (r *fakeRepo) Question() repositories.QuestionRepository         { return fakeQuestions{r.s} }
func (r *fakeRepo) Invite() repositories.InviteRepository             { return fakeInvites{r.s} }
func (r *fakeRepo) Attempt() repositories.AttemptRepository           { return fakeAttempts{r.s} }
func (r *fakeRepo) Answer() repositories.AnswerRepository             { return fakeAnswers{r.s} }
func (r *fakeRepo) Subscription() repositories.SubscriptionRepository { return fakeSubs{r.s} }
func (r *fakeRepo) User() repositories.UserRepository                 { return fakeUsers{r.s} }
func (r *fakeRepo) Ping(ctx context.Context) error                    { return nil }
func (r *fakeRepo) Close() error                                      { return nil }

func (r *fakeRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	snap := r.s.snapshot()
	if err := fn(&fakeRepo{s: r.s, inTx: true}); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

// ===== TESTS =====

type fakeTests struct{ s *fakeStore }

func (f fakeTests) Create(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	test.ID = f.s.id()
	test.CreatedAt = f.s.clock()
	test.UpdatedAt = test.CreatedAt
	f.s.tests[test.ID] = *test
	f.s.created = append(f.s.created, createdTest{ownerID: test.OwnerID, at: test.CreatedAt})
	return nil
}

func (f fakeTests) withCounts(t models.Test) *models.Test {
	t.QuestionCount, t.TotalPoints = 0, 0
	for _, q := range f.s.questions {
		if q.TestID == t.ID {
			t.QuestionCount++
			t.TotalPoints += q.Points
		}
	}
	return &t
}

func (f fakeTests) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.tests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return f.withCounts(t), nil
}

func (f fakeTests) Update(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	existing, ok := f.s.tests[test.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	updated := *test
	updated.CreatedAt = existing.CreatedAt
	updated.Questions = nil
	f.s.tests[test.ID] = updated
	return nil
}

func (f fakeTests) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.tests[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.tests, id)
	for qid, q := range f.s.questions {
		if q.TestID == id {
			delete(f.s.questions, qid)
		}
	}
	for iid, inv := range f.s.invites {
		if inv.TestID == id {
			delete(f.s.invites, iid)
		}
	}
	return nil
}

func (f fakeTests) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Test
	for _, t := range f.s.tests {
		if filters.OwnerID != nil && t.OwnerID != *filters.OwnerID {
			continue
		}
		if filters.Status != nil && t.Status != *filters.Status {
			continue
		}
		if filters.Archived != nil && t.IsArchived != *filters.Archived {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, f.withCounts(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f fakeTests) CountCreatedSince(ctx context.Context, tx *gorm.DB, ownerID string, since time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, c := range f.s.created {
		if c.ownerID == ownerID && !c.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f fakeTests) HasAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.attempts {
		if a.TestID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeTests) ListDueForPublish(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Test, error) {
	return f.due(func(t models.Test) bool {
		return t.IsScheduled && t.AutoPublish && t.Status == models.TestScheduled &&
			t.ScheduledStart != nil && !t.ScheduledStart.After(now)
	}), nil
}

func (f fakeTests) ListDueForClose(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Test, error) {
	return f.due(func(t models.Test) bool {
		return t.IsScheduled && t.AutoClose && t.Status == models.TestActive &&
			t.ScheduledEnd != nil && !t.ScheduledEnd.After(now)
	}), nil
}

func (f fakeTests) due(match func(models.Test) bool) []*models.Test {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Test
	for _, t := range f.s.tests {
		if match(t) {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeTests) TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.TestStatus, locked bool) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.tests[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.IsLocked = locked
	f.s.tests[id] = t
	return true, nil
}

// ===== QUESTIONS =====

type fakeQuestions struct{ s *fakeStore }

func (f fakeQuestions) Create(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	q.ID = f.s.id()
	f.s.questions[q.ID] = *q
	return nil
}

func (f fakeQuestions) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	q, ok := f.s.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &q, nil
}

func (f fakeQuestions) Update(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	existing, ok := f.s.questions[q.ID]
	if !ok || existing.TestID != q.TestID {
		return repositories.ErrNotFound
	}
	f.s.questions[q.ID] = *q
	return nil
}

func (f fakeQuestions) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.questions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.questions, id)
	return nil
}

func (f fakeQuestions) ListByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]models.Question, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []models.Question{}
	for _, q := range f.s.questions {
		if q.TestID == testID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeQuestions) CountByTest(ctx context.Context, tx *gorm.DB, testID uint) (int64, error) {
	qs, _ := f.ListByTest(ctx, tx, testID)
	return int64(len(qs)), nil
}

func (f fakeQuestions) NextPosition(ctx context.Context, tx *gorm.DB, testID uint) (int, error) {
	qs, _ := f.ListByTest(ctx, tx, testID)
	max := 0
	for _, q := range qs {
		if q.Position > max {
			max = q.Position
		}
	}
	return max + 1, nil
}

func (f fakeQuestions) UpdatePositions(ctx context.Context, tx *gorm.DB, testID uint, ids []uint) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i, id := range ids {
		q, ok := f.s.questions[id]
		if !ok || q.TestID != testID {
			return repositories.ErrNotFound
		}
		q.Position = i + 1
		f.s.questions[id] = q
	}
	return nil
}

// ===== INVITES =====

type fakeInvites struct{ s *fakeStore }

func (f fakeInvites) Create(ctx context.Context, tx *gorm.DB, inv *models.TestInvite) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.invites {
		if existing.Token == inv.Token {
			return errors.New("duplicate token")
		}
	}
	inv.ID = f.s.id()
	f.s.invites[inv.ID] = *inv
	return nil
}

func (f fakeInvites) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestInvite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	inv, ok := f.s.invites[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &inv, nil
}

func (f fakeInvites) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.TestInvite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, inv := range f.s.invites {
		if inv.Token == token {
			return &inv, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeInvites) ListByTest(ctx context.Context, tx *gorm.DB, testID uint, filters repositories.InviteFilters) ([]*models.TestInvite, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.TestInvite
	for _, inv := range f.s.invites {
		if inv.TestID != testID {
			continue
		}
		if filters.Used != nil && inv.IsUsed != *filters.Used {
			continue
		}
		inv := inv
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f fakeInvites) MarkUsed(ctx context.Context, tx *gorm.DB, token string, at time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, inv := range f.s.invites {
		if inv.Token == token && !inv.IsUsed {
			inv.IsUsed = true
			inv.UsedAt = &at
			f.s.invites[id] = inv
			return true, nil
		}
	}
	return false, nil
}

func (f fakeInvites) UpdateDelivery(ctx context.Context, tx *gorm.DB, id uint, sent bool, deliveryErr *string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	inv, ok := f.s.invites[id]
	if !ok {
		return repositories.ErrNotFound
	}
	inv.EmailSent = sent
	inv.DeliveryError = deliveryErr
	f.s.invites[id] = inv
	return nil
}

// ===== ATTEMPTS AND ANSWERS =====

type fakeAttempts struct{ s *fakeStore }

func (f fakeAttempts) Create(ctx context.Context, tx *gorm.DB, a *models.TestAttempt) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.attempts {
		if existing.InviteID == a.InviteID {
			return errors.New("duplicate attempt for invite")
		}
	}
	a.ID = f.s.id()
	f.s.attempts[a.ID] = *a
	return nil
}

func (f fakeAttempts) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (f fakeAttempts) answersFor(id uint) []models.Answer {
	var out []models.Answer
	for _, ans := range f.s.answers {
		if ans.AttemptID == id {
			out = append(out, ans)
		}
	}
	return out
}

func (f fakeAttempts) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	a.Answers = f.answersFor(id)
	return &a, nil
}

func (f fakeAttempts) ListByTest(ctx context.Context, tx *gorm.DB, testID uint, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.TestAttempt
	for _, a := range f.s.attempts {
		if a.TestID != testID {
			continue
		}
		if filters.Completed != nil && a.IsCompleted != *filters.Completed {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f fakeAttempts) ListWithAnswers(ctx context.Context, tx *gorm.DB, testID uint) ([]models.TestAttempt, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.TestAttempt
	for _, a := range f.s.attempts {
		if a.TestID == testID {
			a.Answers = f.answersFor(a.ID)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeAttempts) Complete(ctx context.Context, tx *gorm.DB, id uint, score float64, end time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.attempts[id]
	if !ok || a.IsCompleted {
		return false, nil
	}
	a.IsCompleted = true
	a.Score = score
	a.EndTime = &end
	f.s.attempts[id] = a
	return true, nil
}

type fakeAnswers struct{ s *fakeStore }

func (f fakeAnswers) CreateBatch(ctx context.Context, tx *gorm.DB, answers []models.Answer) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, ans := range answers {
		for _, existing := range f.s.answers {
			if existing.AttemptID == ans.AttemptID && existing.QuestionID == ans.QuestionID {
				return errors.New("duplicate answer")
			}
		}
	}
	for _, ans := range answers {
		ans.ID = f.s.id()
		f.s.answers = append(f.s.answers, ans)
	}
	return nil
}

func (f fakeAnswers) ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]models.Answer, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return fakeAttempts(f).answersFor(attemptID), nil
}

// ===== SUBSCRIPTIONS =====

type fakeSubs struct{ s *fakeStore }

func (f fakeSubs) GetOrCreate(ctx context.Context, tx *gorm.DB, userID string, now time.Time) (*models.Subscription, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	sub, ok := f.s.subs[userID]
	if !ok {
		sub = models.Subscription{
			ID:                f.s.id(),
			UserID:            userID,
			Tier:              models.TierFree,
			Status:            models.SubscriptionActive,
			InviteWindowStart: now,
		}
		f.s.subs[userID] = sub
	}
	return &sub, nil
}

func (f fakeSubs) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.Subscription, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	sub, ok := f.s.subs[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &sub, nil
}

func (f fakeSubs) GetByProviderID(ctx context.Context, tx *gorm.DB, providerID string) (*models.Subscription, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, sub := range f.s.subs {
		if sub.ProviderSubscriptionID != nil && *sub.ProviderSubscriptionID == providerID {
			return &sub, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// Update leaves the quota counters alone, like the SQL store
func (f fakeSubs) Update(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	existing, ok := f.s.subs[sub.UserID]
	if !ok || existing.ID != sub.ID {
		return repositories.ErrNotFound
	}
	updated := *sub
	updated.InviteWindowStart = existing.InviteWindowStart
	updated.InvitesUsed = existing.InvitesUsed
	f.s.subs[sub.UserID] = updated
	return nil
}

func (f fakeSubs) ConsumeInvite(ctx context.Context, tx *gorm.DB, userID string, limit int, now time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	sub, ok := f.s.subs[userID]
	if !ok {
		return false, nil
	}
	if !sub.InviteWindowStart.After(now.Add(-models.InviteWindow)) {
		sub.InviteWindowStart = now
		sub.InvitesUsed = 0
	}
	if sub.InvitesUsed >= limit {
		f.s.subs[userID] = sub
		return false, nil
	}
	sub.InvitesUsed++
	f.s.subs[userID] = sub
	return true, nil
}

func (f fakeSubs) ListExpired(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Subscription, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Subscription
	for _, sub := range f.s.subs {
		if sub.Tier == models.TierPro && sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.Before(now) {
			sub := sub
			out = append(out, &sub)
		}
	}
	return out, nil
}

func (f fakeSubs) Expire(ctx context.Context, tx *gorm.DB, id uint, now time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for userID, sub := range f.s.subs {
		if sub.ID == id && sub.Tier == models.TierPro && sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.Before(now) {
			sub.Tier = models.TierFree
			sub.Status = models.SubscriptionExpired
			f.s.subs[userID] = sub
			return true, nil
		}
	}
	return false, nil
}

// ===== USERS =====

type fakeUsers struct{ s *fakeStore }

func (f fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (f fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := f.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
