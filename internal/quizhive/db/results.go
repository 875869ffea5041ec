package db

import (
	"context"
	"time"

	"github.com/quizhive/quizhive/internal/quizhive/models"
)

// CreateQuizResult appends one attempt row. Results are never updated.
func (r *Repository) CreateQuizResult(ctx context.Context, result *models.QuizResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// ResultFilter narrows a result query. Nil fields are not applied.
type ResultFilter struct {
	UserID    *uint
	CompanyID *uint
	QuizID    *uint
}

// ListResults returns matching attempts in chronological order, the order
// the running-average views depend on.
func (r *Repository) ListResults(ctx context.Context, filter *ResultFilter) ([]models.QuizResult, error) {
	q := r.db.WithContext(ctx).Model(&models.QuizResult{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.CompanyID != nil {
		q = q.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.QuizID != nil {
		q = q.Where("quiz_id = ?", *filter.QuizID)
	}

	var results []models.QuizResult
	if err := q.Order("timestamp, id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// AverageScore computes the mean score over matching attempts, zero when no
// rows match.
func (r *Repository) AverageScore(ctx context.Context, filter *ResultFilter) (float64, error) {
	q := r.db.WithContext(ctx).Model(&models.QuizResult{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.CompanyID != nil {
		q = q.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.QuizID != nil {
		q = q.Where("quiz_id = ?", *filter.QuizID)
	}

	var avg *float64
	if err := q.Select("AVG(score)").Scan(&avg).Error; err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// LastResultTime returns the timestamp of the user's latest attempt within
// the company, or nil if the user has none.
func (r *Repository) LastResultTime(ctx context.Context, userID, companyID uint) (*time.Time, error) {
	var last *time.Time
	err := r.db.WithContext(ctx).Model(&models.QuizResult{}).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Select("MAX(timestamp)").
		Scan(&last).Error
	if err != nil {
		return nil, err
	}
	return last, nil
}

// ListAvailableQuizzes returns the non-deleted quizzes of every company the
// user is an active (non-Candidate) employee of.
func (r *Repository) ListAvailableQuizzes(ctx context.Context, userID uint, page models.Page) ([]models.Quiz, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Quiz{}).
		Joins("JOIN employees ON employees.company_id = quizzes.company_id").
		Where("employees.user_id = ? AND employees.role <> ? AND quizzes.is_deleted = ?",
			userID, models.RoleCandidate, false)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).Model(&models.Quiz{}).
		Joins("JOIN employees ON employees.company_id = quizzes.company_id").
		Where("employees.user_id = ? AND employees.role <> ? AND quizzes.is_deleted = ?",
			userID, models.RoleCandidate, false).
		Order("quizzes.id").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&quizzes).Error
	if err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

// LastCompletionTimes maps quiz id to the user's latest attempt timestamp
// for the given quizzes.
func (r *Repository) LastCompletionTimes(ctx context.Context, userID uint, quizIDs []uint) (map[uint]time.Time, error) {
	if len(quizIDs) == 0 {
		return map[uint]time.Time{}, nil
	}

	var rows []struct {
		QuizID uint
		Last   time.Time
	}
	err := r.db.WithContext(ctx).Model(&models.QuizResult{}).
		Select("quiz_id, MAX(timestamp) AS last").
		Where("user_id = ? AND quiz_id IN ?", userID, quizIDs).
		Group("quiz_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	times := make(map[uint]time.Time, len(rows))
	for _, row := range rows {
		times[row.QuizID] = row.Last
	}
	return times, nil
}
