// Package analytics aggregates submitted attempts into leaderboards, rankings and difficulty stats.
// The aggregation functions are pure and run over rows the repository loads.
package analytics

import (
	"sort"
	"time"
)

// AttemptRow is one submitted attempt.
type AttemptRow struct {
	AttemptID   uint
	QuizID      uint
	UserID      uint
	FullName    string
	Score       int
	SubmittedAt time.Time
}

// AnswerRow is one recorded answer joined with its question's correct option.
type AnswerRow struct {
	QuestionID     uint
	SelectedOption int
	CorrectOption  int
}

type LeaderboardEntry struct {
	UserID      uint      `json:"user_id"`
	FullName    string    `json:"full_name"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Ranking struct {
	UserID     uint `json:"user_id"`
	Ranking    *int `json:"ranking"`
	TotalUsers int  `json:"total_users"`
}

type MonthlyAverage struct {
	Period   string  `json:"period"`
	AvgScore float64 `json:"avg_score"`
}

type QuestionDifficulty struct {
	QuestionID     uint    `json:"question_id"`
	Total          int     `json:"total"`
	Correct        int     `json:"correct"`
	PercentCorrect float64 `json:"percent_correct"`
}

type QuizDifficulty struct {
	QuizID       uint    `json:"quiz_id"`
	Title        string  `json:"title"`
	AverageScore float64 `json:"average_score"`
}

// Leaderboard orders attempts by score desc, then earliest submission, then attempt id.
func Leaderboard(rows []AttemptRow, limit int) []LeaderboardEntry {
	sorted := make([]AttemptRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.AttemptID < b.AttemptID
	})
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}

	out := make([]LeaderboardEntry, len(sorted))
	for i, row := range sorted {
		out[i] = LeaderboardEntry{
			UserID:      row.UserID,
			FullName:    row.FullName,
			Score:       row.Score,
			SubmittedAt: row.SubmittedAt,
		}
	}
	return out
}

type userAverage struct {
	userID uint
	avg    float64
}

// averagesByUser returns per-user average score, best first, ties by user id.
func averagesByUser(rows []AttemptRow) []userAverage {
	sums := make(map[uint]int)
	counts := make(map[uint]int)
	for _, row := range rows {
		sums[row.UserID] += row.Score
		counts[row.UserID]++
	}

	out := make([]userAverage, 0, len(sums))
	for userID, sum := range sums {
		out = append(out, userAverage{userID: userID, avg: float64(sum) / float64(counts[userID])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].avg != out[j].avg {
			return out[i].avg > out[j].avg
		}
		return out[i].userID < out[j].userID
	})
	return out
}

// RankUser places userID among everyone with attempts by average score.
// Ties share a rank and the next rank skips (1, 2, 2, 4).
func RankUser(rows []AttemptRow, userID uint) Ranking {
	averages := averagesByUser(rows)
	result := Ranking{UserID: userID, TotalUsers: len(averages)}

	rank := 0
	for i, entry := range averages {
		if i == 0 || entry.avg != averages[i-1].avg {
			rank = i + 1
		}
		if entry.userID == userID {
			r := rank
			result.Ranking = &r
			break
		}
	}
	return result
}

// Average is the mean score of rows, 0 when empty.
func Average(rows []AttemptRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, row := range rows {
		sum += row.Score
	}
	return float64(sum) / float64(len(rows))
}

// MonthlyAverages buckets rows by UTC calendar month of submission.
func MonthlyAverages(rows []AttemptRow) []MonthlyAverage {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, row := range rows {
		period := row.SubmittedAt.UTC().Format("2006-01")
		sums[period] += row.Score
		counts[period]++
	}

	out := make([]MonthlyAverage, 0, len(sums))
	for period, sum := range sums {
		out = append(out, MonthlyAverage{Period: period, AvgScore: float64(sum) / float64(counts[period])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Difficulty reports every question in questionIDs, including ones nobody answered.
func Difficulty(questionIDs []uint, answers []AnswerRow) []QuestionDifficulty {
	byQuestion := make(map[uint]*QuestionDifficulty, len(questionIDs))
	out := make([]QuestionDifficulty, len(questionIDs))
	ids := make([]uint, len(questionIDs))
	copy(ids, questionIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		out[i] = QuestionDifficulty{QuestionID: id}
		byQuestion[id] = &out[i]
	}

	for _, ans := range answers {
		stat, ok := byQuestion[ans.QuestionID]
		if !ok {
			continue
		}
		stat.Total++
		if ans.SelectedOption == ans.CorrectOption {
			stat.Correct++
		}
	}

	for i := range out {
		if out[i].Total > 0 {
			out[i].PercentCorrect = float64(out[i].Correct) / float64(out[i].Total) * 100
		}
	}
	return out
}

// QuizInfo carries what Hardest needs to know about a quiz.
type QuizInfo struct {
	ID            uint
	Title         string
	QuestionCount int
}

// Hardest ranks quizzes by mean score ratio ascending, reported as a percentage.
// Quizzes without questions or without attempts are skipped.
func Hardest(quizzes []QuizInfo, rows []AttemptRow, limit int) []QuizDifficulty {
	ratioSum := make(map[uint]float64)
	counts := make(map[uint]int)
	info := make(map[uint]QuizInfo, len(quizzes))
	for _, q := range quizzes {
		info[q.ID] = q
	}

	for _, row := range rows {
		q, ok := info[row.QuizID]
		if !ok || q.QuestionCount == 0 {
			continue
		}
		ratioSum[row.QuizID] += float64(row.Score) / float64(q.QuestionCount)
		counts[row.QuizID]++
	}

	out := make([]QuizDifficulty, 0, len(counts))
	for quizID, n := range counts {
		out = append(out, QuizDifficulty{
			QuizID:       quizID,
			Title:        info[quizID].Title,
			AverageScore: ratioSum[quizID] / float64(n) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore < out[j].AverageScore
		}
		return out[i].QuizID < out[j].QuizID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
