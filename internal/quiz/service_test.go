package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-master/internal/models"
	"quiz-master/pkg/logger"
)

type fakeStore struct {
	quizzes  map[uint]*models.Quiz
	attempts map[uint]*models.Attempt
	nextID   uint

	closedAttempts   []uint
	createErr        error
	saveErr          error
	getQuizWithCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quizzes:  make(map[uint]*models.Quiz),
		attempts: make(map[uint]*models.Attempt),
		nextID:   100,
	}
}

func (f *fakeStore) ListSubjects(context.Context) ([]models.Subject, error) {
	return []models.Subject{{ID: 1, Name: "Physics"}}, nil
}

func (f *fakeStore) ListChapters(_ context.Context, subjectID uint) ([]models.Chapter, error) {
	return []models.Chapter{{ID: 2, SubjectID: subjectID, Name: "Optics"}}, nil
}

func (f *fakeStore) ListQuizzes(_ context.Context, chapterID uint) ([]models.Quiz, error) {
	var out []models.Quiz
	for _, q := range f.quizzes {
		if q.ChapterID == chapterID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeStore) GetQuiz(_ context.Context, quizID uint) (*models.Quiz, error) {
	q, ok := f.quizzes[quizID]
	if !ok {
		return nil, ErrQuizNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeStore) GetQuizWithQuestions(ctx context.Context, quizID uint) (*models.Quiz, error) {
	f.getQuizWithCalls++
	return f.GetQuiz(ctx, quizID)
}

func (f *fakeStore) FindOpenAttempt(_ context.Context, quizID, userID uint) (*models.Attempt, error) {
	for _, a := range f.attempts {
		if a.QuizID == quizID && a.UserID == userID && a.SubmittedAt == nil {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAttemptNotFound
}

func (f *fakeStore) CreateAttempt(_ context.Context, attempt *models.Attempt) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	attempt.ID = f.nextID
	cp := *attempt
	f.attempts[attempt.ID] = &cp
	return nil
}

func (f *fakeStore) CloseExpiredAttempt(_ context.Context, attemptID uint, deadline time.Time) error {
	a := f.attempts[attemptID]
	zero := 0
	a.SubmittedAt = &deadline
	a.Score = &zero
	f.closedAttempts = append(f.closedAttempts, attemptID)
	return nil
}

func (f *fakeStore) GetAttempt(_ context.Context, attemptID uint) (*models.Attempt, error) {
	a, ok := f.attempts[attemptID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	cp := *a
	if q, ok := f.quizzes[a.QuizID]; ok {
		cp.Quiz = *q
	}
	return &cp, nil
}

func (f *fakeStore) SaveSubmission(_ context.Context, attemptID uint, submittedAt time.Time, score int, answers []models.Answer) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	a := f.attempts[attemptID]
	if a.SubmittedAt != nil {
		return ErrAlreadySubmitted
	}
	a.SubmittedAt = &submittedAt
	a.Score = &score
	a.Answers = answers
	return nil
}

func (f *fakeStore) ListAttemptsByUser(_ context.Context, userID uint) ([]models.Attempt, error) {
	var out []models.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetQuestions(_ context.Context, ids []uint) ([]models.Question, error) {
	var out []models.Question
	for _, q := range f.quizzes {
		for _, question := range q.Questions {
			for _, id := range ids {
				if question.ID == id {
					out = append(out, question)
				}
			}
		}
	}
	return out, nil
}

type fakeCache struct {
	data map[string][]byte
	gets int
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.gets++
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

// brokenCache fails every call, like Redis being unreachable.
type brokenCache struct {
	gets int
	sets int
}

func (c *brokenCache) GetJSON(context.Context, string, interface{}) (bool, error) {
	c.gets++
	return false, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func (c *brokenCache) SetJSON(context.Context, string, interface{}, time.Duration) error {
	c.sets++
	return errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

var baseTime = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestService(store Store, cache CatalogCache) *Service {
	svc := NewService(store, cache, time.Minute, logger.Discard())
	svc.now = func() time.Time { return baseTime }
	return svc
}

func addQuiz(store *fakeStore, id uint, durationMin int) *models.Quiz {
	q := &models.Quiz{
		ID:          id,
		ChapterID:   2,
		Title:       "Quiz",
		DurationMin: durationMin,
		Questions: []models.Question{
			{ID: id*10 + 1, QuizID: id, CorrectOption: 1},
			{ID: id*10 + 2, QuizID: id, CorrectOption: 2},
		},
	}
	store.quizzes[id] = q
	return q
}

func TestStartAttemptCreatesThenResumes(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	svc := newTestService(store, nil)
	ctx := context.Background()

	first, created, err := svc.StartAttempt(ctx, 1, 7)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, baseTime, first.StartedAt)

	svc.now = func() time.Time { return baseTime.Add(5 * time.Minute) }
	again, created, err := svc.StartAttempt(ctx, 1, 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestStartAttemptClosesExpiredOpenAttempt(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	svc := newTestService(store, nil)
	ctx := context.Background()

	first, _, err := svc.StartAttempt(ctx, 1, 7)
	require.NoError(t, err)

	svc.now = func() time.Time { return baseTime.Add(11 * time.Minute) }
	second, created, err := svc.StartAttempt(ctx, 1, 7)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []uint{first.ID}, store.closedAttempts)

	closed := store.attempts[first.ID]
	require.NotNil(t, closed.Score)
	assert.Zero(t, *closed.Score)
	assert.Equal(t, baseTime.Add(10*time.Minute), *closed.SubmittedAt)
}

func TestStartAttemptUnknownOrScheduledQuiz(t *testing.T) {
	store := newFakeStore()
	q := addQuiz(store, 1, 10)
	later := baseTime.Add(time.Hour)
	q.ScheduledAt = &later
	svc := newTestService(store, nil)

	_, _, err := svc.StartAttempt(context.Background(), 99, 7)
	assert.ErrorIs(t, err, ErrQuizNotFound)

	_, _, err = svc.StartAttempt(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrQuizNotOpen)
}

func TestStartAttemptCreateRaceReturnsWinner(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	winner := &models.Attempt{ID: 5, QuizID: 1, UserID: 7, StartedAt: baseTime}
	svc := newTestService(store, nil)

	// The open attempt shows up only after our create fails.
	store.createErr = errors.New("UNIQUE constraint failed")
	racing := &racingStore{fakeStore: store, winner: winner}
	svc.store = racing

	got, created, err := svc.StartAttempt(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint(5), got.ID)
}

type racingStore struct {
	*fakeStore
	winner *models.Attempt
	calls  int
}

func (r *racingStore) FindOpenAttempt(ctx context.Context, quizID, userID uint) (*models.Attempt, error) {
	r.calls++
	if r.calls == 1 {
		return nil, ErrAttemptNotFound
	}
	return r.winner, nil
}

func TestSubmitAttemptScoresAndRejectsResubmit(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	svc := newTestService(store, nil)
	ctx := context.Background()

	attempt, _, err := svc.StartAttempt(ctx, 1, 7)
	require.NoError(t, err)

	result, err := svc.SubmitAttempt(ctx, attempt.ID, 7, []SubmittedAnswer{
		{QuestionID: 11, SelectedOption: 1},
		{QuestionID: 12, SelectedOption: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.TotalQuestions)

	_, err = svc.SubmitAttempt(ctx, attempt.ID, 7, nil)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitAttemptRules(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	svc := newTestService(store, nil)
	ctx := context.Background()

	attempt, _, err := svc.StartAttempt(ctx, 1, 7)
	require.NoError(t, err)

	_, err = svc.SubmitAttempt(ctx, attempt.ID, 8, nil)
	assert.ErrorIs(t, err, ErrAttemptNotFound, "another user's attempt is invisible")

	_, err = svc.SubmitAttempt(ctx, attempt.ID, 7, []SubmittedAnswer{{QuestionID: 11, SelectedOption: 9}})
	assert.ErrorIs(t, err, ErrInvalidAnswer)
	assert.Nil(t, store.attempts[attempt.ID].SubmittedAt, "invalid submission must not close the attempt")

	svc.now = func() time.Time { return baseTime.Add(10 * time.Minute) }
	_, err = svc.SubmitAttempt(ctx, attempt.ID, 7, nil)
	require.NoError(t, err, "submitting exactly at the deadline is allowed")
}

func TestSubmitAttemptAfterDeadline(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	svc := newTestService(store, nil)
	ctx := context.Background()

	attempt, _, err := svc.StartAttempt(ctx, 1, 7)
	require.NoError(t, err)

	svc.now = func() time.Time { return baseTime.Add(10*time.Minute + time.Second) }
	_, err = svc.SubmitAttempt(ctx, attempt.ID, 7, nil)
	assert.ErrorIs(t, err, ErrTimeLimitExceeded)
}

func TestGetAttemptForbiddenForOtherUser(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	svc := newTestService(store, nil)
	ctx := context.Background()

	attempt, _, err := svc.StartAttempt(ctx, 1, 7)
	require.NoError(t, err)

	_, err = svc.GetAttempt(ctx, attempt.ID, 8)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCatalogReadsAreCached(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	cache := newFakeCache()
	svc := newTestService(store, cache)
	ctx := context.Background()

	first, err := svc.GetFullQuiz(ctx, 1)
	require.NoError(t, err)
	second, err := svc.GetFullQuiz(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.getQuizWithCalls)
	assert.Equal(t, 1, cache.sets)
	require.Len(t, second.Questions, 2)
	assert.Len(t, second.Questions[0].Options, 4)

	subjects, err := svc.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SubjectDTO{{ID: 1, Name: "Physics"}}, subjects)
}

func TestCatalogReadsFallThroughWhenCacheFails(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	cache := &brokenCache{}
	svc := newTestService(store, cache)
	ctx := context.Background()

	quiz, err := svc.GetFullQuiz(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), quiz.QuizID)
	assert.Len(t, quiz.Questions, 2)

	quiz, err = svc.GetFullQuiz(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 2)
	assert.Equal(t, 2, store.getQuizWithCalls)

	subjects, err := svc.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SubjectDTO{{ID: 1, Name: "Physics"}}, subjects)

	assert.Equal(t, 3, cache.gets)
	assert.Equal(t, 3, cache.sets)

	_, err = svc.GetFullQuiz(ctx, 99)
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestFullQuizHidesCorrectOption(t *testing.T) {
	store := newFakeStore()
	addQuiz(store, 1, 10)
	svc := newTestService(store, nil)

	full, err := svc.GetFullQuiz(context.Background(), 1)
	require.NoError(t, err)

	raw, err := json.Marshal(full)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct")
}
