// Package quiz implements the authoring store and the vote/scoring
// pipeline. Every mutation re-derives the owning quiz and company and
// re-checks the caller's role; authorization is never cached between calls.
package quiz

import (
	"context"
	"fmt"

	"github.com/quizhive/quizhive/internal/quizhive/access"
	"github.com/quizhive/quizhive/internal/quizhive/db"
	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/events"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"github.com/quizhive/quizhive/internal/quizhive/votestore"
	"go.uber.org/zap"
)

// Repository defines the storage interface for quiz aggregates and results.
type Repository interface {
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuizTree(ctx context.Context, id uint) (*models.Quiz, error)
	UpdateQuiz(ctx context.Context, id uint, update *db.QuizUpdate) error
	SoftDeleteQuiz(ctx context.Context, id uint) error
	ListQuizzesByCompany(ctx context.Context, companyID uint, page models.Page) ([]models.Quiz, int64, error)
	GetQuestion(ctx context.Context, id uint) (*models.Question, error)
	CreateQuestion(ctx context.Context, question *models.Question) error
	UpdateQuestionText(ctx context.Context, id uint, text string) error
	DeleteQuestion(ctx context.Context, id uint) error
	GetAnswer(ctx context.Context, id uint) (*models.Answer, error)
	CreateAnswer(ctx context.Context, answer *models.Answer) error
	UpdateAnswer(ctx context.Context, id uint, text string, isCorrect bool) error
	DeleteAnswer(ctx context.Context, id uint) error
	CreateQuizResult(ctx context.Context, result *models.QuizResult) error
}

// EventProducer publishes quiz lifecycle events; fan-out consumers pick them
// up asynchronously.
type EventProducer interface {
	Produce(eventType events.EventType, quiz *models.Quiz)
}

// VoteStore is the ephemeral per-question vote cache.
type VoteStore interface {
	Save(ctx context.Context, userID, companyID, quizID, questionID uint, record *votestore.Record) error
	Scan(ctx context.Context, pattern string) ([]votestore.Record, error)
}

type Service struct {
	repo     Repository
	gate     *access.Gate
	producer EventProducer
	votes    VoteStore
	logger   *zap.Logger
}

func NewService(repo Repository, gate *access.Gate, producer EventProducer, votes VoteStore, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		gate:     gate,
		producer: producer,
		votes:    votes,
		logger:   logger.Named("quiz"),
	}
}

// AnswerInput is one answer option of a new question.
type AnswerInput struct {
	Text      string
	IsCorrect bool
}

// QuestionInput is one question of a new quiz.
type QuestionInput struct {
	Text    string
	Answers []AnswerInput
}

// QuizInput is the full authoring payload.
type QuizInput struct {
	Title           string
	Description     string
	FrequencyInDays int
	Questions       []QuestionInput
}

func validateQuestions(questions []QuestionInput) error {
	if len(questions) < 2 {
		return fmt.Errorf("%w: a quiz needs at least two questions", e.ErrInvalidInput)
	}
	for _, q := range questions {
		if len(q.Answers) < 2 {
			return fmt.Errorf("%w: each question needs at least two answer options", e.ErrInvalidInput)
		}
	}
	return nil
}

// CreateQuiz validates the structure, persists the whole tree in one
// transaction and publishes a quiz-created event. Fan-out runs off the
// request path so a fan-out failure cannot roll back the creation.
func (s *Service) CreateQuiz(ctx context.Context, callerID, companyID uint, input *QuizInput) (*models.Quiz, error) {
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, companyID); err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", e.ErrInvalidInput)
	}
	if err := validateQuestions(input.Questions); err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		CompanyID:       companyID,
		UserID:          callerID,
		Title:           input.Title,
		Description:     input.Description,
		FrequencyInDays: input.FrequencyInDays,
	}
	for _, q := range input.Questions {
		question := models.Question{QuestionText: q.Text}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, models.Answer{
				AnswerText: a.Text,
				IsCorrect:  a.IsCorrect,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	go func() {
		s.producer.Produce(events.QuizCreated, quiz)
	}()
	s.logger.Info("quiz created",
		zap.Uint("quiz_id", quiz.ID),
		zap.Uint("company_id", companyID),
	)
	return quiz, nil
}

// GetQuiz loads the full question/answer tree.
func (s *Service) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	return s.repo.GetQuizTree(ctx, quizID)
}

// ListByCompany pages through the company's non-deleted quizzes, newest
// first.
func (s *Service) ListByCompany(ctx context.Context, companyID uint, page models.Page) ([]models.Quiz, models.PageInfo, error) {
	quizzes, total, err := s.repo.ListQuizzesByCompany(ctx, companyID, page)
	if err != nil {
		return nil, models.PageInfo{}, err
	}
	return quizzes, models.NewPageInfo(total, page.Limit), nil
}

// UpdateQuiz changes title/description/frequency metadata.
func (s *Service) UpdateQuiz(ctx context.Context, callerID, quizID uint, update *db.QuizUpdate) (*models.Quiz, error) {
	quiz, err := s.repo.GetQuizTree(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, quiz.CompanyID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuiz(ctx, quizID, update); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}
	updated, err := s.repo.GetQuizTree(ctx, quizID)
	if err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.QuizUpdated, updated)
	}()
	return updated, nil
}

// DeleteQuiz flags the quiz deleted; attempt history stays resolvable.
func (s *Service) DeleteQuiz(ctx context.Context, callerID, quizID uint) error {
	quiz, err := s.repo.GetQuizTree(ctx, quizID)
	if err != nil {
		return err
	}
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, quiz.CompanyID); err != nil {
		return err
	}
	if err := s.repo.SoftDeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	go func() {
		s.producer.Produce(events.QuizDeleted, quiz)
	}()
	return nil
}

// AddQuestion appends a question with its answers to an existing quiz.
func (s *Service) AddQuestion(ctx context.Context, callerID, quizID uint, input *QuestionInput) (*models.Question, error) {
	quiz, err := s.repo.GetQuizTree(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, quiz.CompanyID); err != nil {
		return nil, err
	}
	if len(input.Answers) < 2 {
		return nil, fmt.Errorf("%w: each question needs at least two answer options", e.ErrInvalidInput)
	}

	question := &models.Question{QuizID: quizID, QuestionText: input.Text}
	for _, a := range input.Answers {
		question.Answers = append(question.Answers, models.Answer{
			AnswerText: a.Text,
			IsCorrect:  a.IsCorrect,
		})
	}
	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return question, nil
}

// UpdateQuestion changes a question's text.
func (s *Service) UpdateQuestion(ctx context.Context, callerID, questionID uint, text string) error {
	question, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if err := s.authorizeForQuiz(ctx, callerID, question.QuizID); err != nil {
		return err
	}
	return s.repo.UpdateQuestionText(ctx, questionID, text)
}

// DeleteQuestion removes a question and its answers.
func (s *Service) DeleteQuestion(ctx context.Context, callerID, questionID uint) error {
	question, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if err := s.authorizeForQuiz(ctx, callerID, question.QuizID); err != nil {
		return err
	}
	return s.repo.DeleteQuestion(ctx, questionID)
}

// AddAnswer appends one answer option to an existing question.
func (s *Service) AddAnswer(ctx context.Context, callerID, questionID uint, input *AnswerInput) (*models.Answer, error) {
	question, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeForQuiz(ctx, callerID, question.QuizID); err != nil {
		return nil, err
	}

	answer := &models.Answer{
		QuestionID: questionID,
		AnswerText: input.Text,
		IsCorrect:  input.IsCorrect,
	}
	if err := s.repo.CreateAnswer(ctx, answer); err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}
	return answer, nil
}

// UpdateAnswer changes an answer's text and correctness flag.
func (s *Service) UpdateAnswer(ctx context.Context, callerID, answerID uint, text string, isCorrect bool) error {
	answer, err := s.repo.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}
	question, err := s.repo.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		return err
	}
	if err := s.authorizeForQuiz(ctx, callerID, question.QuizID); err != nil {
		return err
	}
	return s.repo.UpdateAnswer(ctx, answerID, text, isCorrect)
}

// DeleteAnswer removes one answer option.
func (s *Service) DeleteAnswer(ctx context.Context, callerID, answerID uint) error {
	answer, err := s.repo.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}
	question, err := s.repo.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		return err
	}
	if err := s.authorizeForQuiz(ctx, callerID, question.QuizID); err != nil {
		return err
	}
	return s.repo.DeleteAnswer(ctx, answerID)
}

func (s *Service) authorizeForQuiz(ctx context.Context, callerID, quizID uint) error {
	quiz, err := s.repo.GetQuizTree(ctx, quizID)
	if err != nil {
		return err
	}
	return s.gate.RequireAdminOrOwner(ctx, callerID, quiz.CompanyID)
}
