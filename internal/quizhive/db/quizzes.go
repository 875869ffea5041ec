package db

import (
	"context"
	"errors"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"gorm.io/gorm"
)

// CreateQuiz inserts the quiz together with its nested questions and
// answers. GORM wraps the association inserts in one transaction, so a
// mid-sequence failure leaves no partial quiz behind.
func (r *Repository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	result := r.db.WithContext(ctx).Create(quiz)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// GetQuizTree eagerly loads the full question/answer tree in insertion
// order. Soft-deleted quizzes still resolve here; voting and listing apply
// their own visibility rules.
func (r *Repository) GetQuizTree(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	result := r.db.WithContext(ctx).
		Preload("Questions", func(q *gorm.DB) *gorm.DB { return q.Order("questions.id") }).
		Preload("Questions.Answers", func(q *gorm.DB) *gorm.DB { return q.Order("answers.id") }).
		First(&quiz, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &quiz, nil
}

// QuizUpdate holds the mutable quiz metadata.
type QuizUpdate struct {
	Title           *string
	Description     *string
	FrequencyInDays *int
}

func (r *Repository) UpdateQuiz(ctx context.Context, id uint, update *QuizUpdate) error {
	fields := map[string]interface{}{}
	if update.Title != nil {
		fields["title"] = *update.Title
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.FrequencyInDays != nil {
		fields["frequency_in_days"] = *update.FrequencyInDays
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.Quiz{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// SoftDeleteQuiz flags the quiz as deleted without removing rows, keeping
// QuizResult references resolvable.
func (r *Repository) SoftDeleteQuiz(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Quiz{}).
		Where("id = ?", id).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ListQuizzesByCompany excludes soft-deleted quizzes and returns newest
// first.
func (r *Repository) ListQuizzesByCompany(ctx context.Context, companyID uint, page models.Page) ([]models.Quiz, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Quiz{}).
		Where("company_id = ? AND is_deleted = ?", companyID, false)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quizzes []models.Quiz
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND is_deleted = ?", companyID, false).
		Order("id DESC").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&quizzes)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return quizzes, total, nil
}

func (r *Repository) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	result := r.db.WithContext(ctx).First(&question, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &question, nil
}

// CreateQuestion inserts the question with its answers in one transaction.
func (r *Repository) CreateQuestion(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *Repository) UpdateQuestionText(ctx context.Context, id uint, text string) error {
	result := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", id).
		Update("question_text", text)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteQuestion(ctx context.Context, id uint) error {
	return r.WithTransaction(ctx, func(repo *Repository) error {
		if err := repo.db.Delete(&models.Answer{}, "question_id = ?", id).Error; err != nil {
			return err
		}
		result := repo.db.Delete(&models.Question{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) GetAnswer(ctx context.Context, id uint) (*models.Answer, error) {
	var answer models.Answer
	result := r.db.WithContext(ctx).First(&answer, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &answer, nil
}

func (r *Repository) CreateAnswer(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

func (r *Repository) UpdateAnswer(ctx context.Context, id uint, text string, isCorrect bool) error {
	result := r.db.WithContext(ctx).Model(&models.Answer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"answer_text": text, "is_correct": isCorrect})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAnswer(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Answer{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}
