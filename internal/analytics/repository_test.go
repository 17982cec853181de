package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"quiz-master/internal/models"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "analytics.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func submitted(t *testing.T, db *gorm.DB, quizID, userID uint, score int, at time.Time) models.Attempt {
	t.Helper()
	attempt := models.Attempt{QuizID: quizID, UserID: userID, StartedAt: at.Add(-time.Minute), SubmittedAt: &at, Score: &score}
	require.NoError(t, db.Omit("Quiz", "Answers").Create(&attempt).Error)
	return attempt
}

func TestGormRepositoryQueries(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ada := models.User{Email: "ada@example.com", FullName: "Ada", Role: models.RoleUser}
	bo := models.User{Email: "bo@example.com", FullName: "Bo", Role: models.RoleUser}
	require.NoError(t, db.Create(&ada).Error)
	require.NoError(t, db.Create(&bo).Error)

	subject := models.Subject{Name: "Chemistry"}
	require.NoError(t, db.Create(&subject).Error)
	chapter := models.Chapter{SubjectID: subject.ID, Name: "Acids"}
	require.NoError(t, db.Create(&chapter).Error)
	quiz := models.Quiz{ChapterID: chapter.ID, Title: "pH", DurationMin: 5}
	empty := models.Quiz{ChapterID: chapter.ID, Title: "Empty", DurationMin: 5}
	require.NoError(t, db.Create(&quiz).Error)
	require.NoError(t, db.Create(&empty).Error)

	q1 := models.Question{QuizID: quiz.ID, Statement: "1", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectOption: 1}
	q2 := models.Question{QuizID: quiz.ID, Statement: "2", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectOption: 2}
	gone := models.Question{QuizID: quiz.ID, Statement: "3", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectOption: 3}
	require.NoError(t, db.Create(&q1).Error)
	require.NoError(t, db.Create(&q2).Error)
	require.NoError(t, db.Create(&gone).Error)
	require.NoError(t, db.Delete(&gone).Error)

	jan := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	first := submitted(t, db, quiz.ID, ada.ID, 2, jan)
	submitted(t, db, quiz.ID, bo.ID, 1, feb)
	open := models.Attempt{QuizID: quiz.ID, UserID: bo.ID, StartedAt: feb}
	require.NoError(t, db.Omit("Quiz", "Answers").Create(&open).Error)

	require.NoError(t, db.Create(&models.Answer{AttemptID: first.ID, QuestionID: q1.ID, SelectedOption: 1}).Error)
	require.NoError(t, db.Create(&models.Answer{AttemptID: first.ID, QuestionID: q2.ID, SelectedOption: 4}).Error)
	require.NoError(t, db.Create(&models.Answer{AttemptID: open.ID, QuestionID: q1.ID, SelectedOption: 1}).Error)

	t.Run("submitted attempts skip open ones", func(t *testing.T) {
		rows, err := repo.SubmittedAttempts(ctx, AttemptFilter{QuizID: quiz.ID})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Ada", rows[0].FullName)
		assert.Equal(t, 2, rows[0].Score)
		assert.True(t, rows[0].SubmittedAt.Equal(jan))
	})

	t.Run("time window is half open", func(t *testing.T) {
		rows, err := repo.SubmittedAttempts(ctx, AttemptFilter{From: jan, To: feb})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, ada.ID, rows[0].UserID)
	})

	t.Run("answers of submitted attempts only", func(t *testing.T) {
		answers, err := repo.QuizAnswers(ctx, quiz.ID)
		require.NoError(t, err)
		assert.Len(t, answers, 2)
	})

	t.Run("question ids exclude deleted", func(t *testing.T) {
		ids, err := repo.QuestionIDs(ctx, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{q1.ID, q2.ID}, ids)
	})

	t.Run("quiz infos count live questions", func(t *testing.T) {
		infos, err := repo.QuizInfos(ctx)
		require.NoError(t, err)
		counts := make(map[uint]int)
		for _, info := range infos {
			counts[info.ID] = info.QuestionCount
		}
		assert.Equal(t, map[uint]int{quiz.ID: 2, empty.ID: 0}, counts)
	})

	t.Run("attempt count includes open attempts", func(t *testing.T) {
		count, err := repo.CountAttempts(ctx, bo.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = repo.CountAttempts(ctx, ada.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("summary counts soft-deleted catalog rows", func(t *testing.T) {
		retired := models.Subject{Name: "Alchemy"}
		require.NoError(t, db.Create(&retired).Error)
		require.NoError(t, db.Delete(&retired).Error)

		summary, err := repo.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, Summary{Users: 2, Subjects: 2, Quizzes: 2, Attempts: 3}, summary)
	})

	t.Run("quiz exists", func(t *testing.T) {
		ok, err := repo.QuizExists(ctx, quiz.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.QuizExists(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCountsOnPostgresDialect(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "subjects"$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "quizzes"$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "attempts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))

	summary, err := NewRepository(db).Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 12, Subjects: 3, Quizzes: 7, Attempts: 40}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountsPropagatesErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).WillReturnError(assert.AnError)

	_, err = NewRepository(db).Counts(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
