// Package analytics derives ratings from durable quiz results: plain
// averages for display plus running-average trends across repeated attempts.
// Everything here is read-only.
package analytics

import (
	"context"
	"math"
	"time"

	"github.com/quizhive/quizhive/internal/pkg/utils"
	"github.com/quizhive/quizhive/internal/quizhive/access"
	"github.com/quizhive/quizhive/internal/quizhive/db"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"go.uber.org/zap"
)

// Repository defines the read surface analytics needs.
type Repository interface {
	AverageScore(ctx context.Context, filter *db.ResultFilter) (float64, error)
	ListResults(ctx context.Context, filter *db.ResultFilter) ([]models.QuizResult, error)
	ListAvailableQuizzes(ctx context.Context, userID uint, page models.Page) ([]models.Quiz, int64, error)
	LastCompletionTimes(ctx context.Context, userID uint, quizIDs []uint) (map[uint]time.Time, error)
	ListEmployees(ctx context.Context, filter *db.EmployeeFilter, page models.Page) ([]models.Employee, int64, error)
	LastResultTime(ctx context.Context, userID, companyID uint) (*time.Time, error)
}

type Service struct {
	repo   Repository
	gate   *access.Gate
	logger *zap.Logger
}

func NewService(repo Repository, gate *access.Gate, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		logger: logger.Named("analytics"),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CompanyAverage is the mean score of the user's attempts within one
// company, zero when there are none.
func (s *Service) CompanyAverage(ctx context.Context, userID, companyID uint) (float64, error) {
	avg, err := s.repo.AverageScore(ctx, &db.ResultFilter{UserID: &userID, CompanyID: &companyID})
	if err != nil {
		return 0, err
	}
	return round2(avg), nil
}

// SystemAverage is the mean score of all of the user's attempts across the
// whole system.
func (s *Service) SystemAverage(ctx context.Context, userID uint) (float64, error) {
	avg, err := s.repo.AverageScore(ctx, &db.ResultFilter{UserID: &userID})
	if err != nil {
		return 0, err
	}
	return round2(avg), nil
}

// Attempt is one point of a running-average trend: totals accumulate across
// attempts in chronological order and the percentage is recomputed at each
// point.
type Attempt struct {
	QuizResultID        uint      `json:"quiz_result_id"`
	TotalQuestion       int       `json:"total_question"`
	TotalCorrectAnswers int       `json:"total_correct_answers"`
	AverageScore        float64   `json:"average_score"`
	Timestamp           time.Time `json:"timestamp"`
}

// QuizTrend is the running average of one user's attempts on one quiz.
type QuizTrend struct {
	QuizID    uint      `json:"quiz_id"`
	CompanyID uint      `json:"company_id"`
	Attempts  []Attempt `json:"score"`
}

// MemberTrend is the running average of one member's attempts on one quiz.
type MemberTrend struct {
	QuizID    uint        `json:"quiz_id"`
	CompanyID uint        `json:"company_id"`
	User      models.User `json:"member"`
	Attempts  []Attempt   `json:"score"`
}

func accumulate(attempts []Attempt, result models.QuizResult) []Attempt {
	totalQuestion := result.TotalQuestion
	totalCorrect := result.TotalAnswers
	if n := len(attempts); n > 0 {
		totalQuestion += attempts[n-1].TotalQuestion
		totalCorrect += attempts[n-1].TotalCorrectAnswers
	}

	average := 0.0
	if totalQuestion > 0 {
		average = round2(float64(totalCorrect) / float64(totalQuestion) * 100)
	}
	return append(attempts, Attempt{
		QuizResultID:        result.ID,
		TotalQuestion:       totalQuestion,
		TotalCorrectAnswers: totalCorrect,
		AverageScore:        average,
		Timestamp:           result.Timestamp,
	})
}

// UserQuizTrends groups the user's attempt history by quiz, each group
// carrying a cumulative running average. Used for trend display, not for
// gating.
func (s *Service) UserQuizTrends(ctx context.Context, userID uint) ([]QuizTrend, error) {
	results, err := s.repo.ListResults(ctx, &db.ResultFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}

	var order []uint
	byQuiz := map[uint]*QuizTrend{}
	for _, result := range results {
		trend, ok := byQuiz[result.QuizID]
		if !ok {
			trend = &QuizTrend{QuizID: result.QuizID, CompanyID: result.CompanyID}
			byQuiz[result.QuizID] = trend
			order = append(order, result.QuizID)
		}
		trend.Attempts = accumulate(trend.Attempts, result)
	}

	trends := make([]QuizTrend, 0, len(order))
	for _, quizID := range order {
		trends = append(trends, *byQuiz[quizID])
	}
	return trends, nil
}

// UserLoader fetches member records for display in company-scoped views.
type UserLoader interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// QuizMemberTrends groups one quiz's attempt history by member, each group
// with a cumulative running average. Admin/owner only.
func (s *Service) QuizMemberTrends(ctx context.Context, users UserLoader, callerID, companyID, quizID uint) ([]MemberTrend, error) {
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, companyID); err != nil {
		return nil, err
	}

	results, err := s.repo.ListResults(ctx, &db.ResultFilter{CompanyID: &companyID, QuizID: &quizID})
	if err != nil {
		return nil, err
	}

	var order []uint
	byUser := map[uint]*MemberTrend{}
	for _, result := range results {
		trend, ok := byUser[result.UserID]
		if !ok {
			user, err := users.GetUser(ctx, result.UserID)
			if err != nil {
				return nil, err
			}
			trend = &MemberTrend{QuizID: quizID, CompanyID: companyID, User: *user}
			byUser[result.UserID] = trend
			order = append(order, result.UserID)
		}
		trend.Attempts = accumulate(trend.Attempts, result)
	}

	trends := make([]MemberTrend, 0, len(order))
	for _, userID := range order {
		trends = append(trends, *byUser[userID])
	}
	return trends, nil
}

// QuizAvailability pairs a takeable quiz with the user's last completion
// time. Never-taken quizzes report the query time, matching the advisory
// re-take cadence display.
type QuizAvailability struct {
	Quiz          models.Quiz `json:"quiz"`
	LastCompleted time.Time   `json:"date"`
}

// AvailableQuizzes lists the non-deleted quizzes of every company the user
// actively belongs to.
func (s *Service) AvailableQuizzes(ctx context.Context, userID uint, page models.Page) ([]QuizAvailability, models.PageInfo, error) {
	quizzes, total, err := s.repo.ListAvailableQuizzes(ctx, userID, page)
	if err != nil {
		return nil, models.PageInfo{}, err
	}

	quizIDs := make([]uint, 0, len(quizzes))
	for _, quiz := range quizzes {
		quizIDs = append(quizIDs, quiz.ID)
	}
	times, err := s.repo.LastCompletionTimes(ctx, userID, quizIDs)
	if err != nil {
		return nil, models.PageInfo{}, err
	}

	now := time.Now().UTC()
	availability := make([]QuizAvailability, 0, len(quizzes))
	for _, quiz := range quizzes {
		last, ok := times[quiz.ID]
		if !ok {
			last = now
		}
		availability = append(availability, QuizAvailability{Quiz: quiz, LastCompleted: last})
	}
	return availability, models.NewPageInfo(total, page.Limit), nil
}

// MemberLastAttempt pairs an employee with the timestamp of their latest
// attempt in the company, nil when they have none.
type MemberLastAttempt struct {
	Employee      models.Employee `json:"employee"`
	LastCompleted *time.Time      `json:"last_completed_time"`
}

// MembersLastAttempt lists each non-Candidate employee of the company with
// their latest completion time. Admin/owner only.
func (s *Service) MembersLastAttempt(ctx context.Context, callerID, companyID uint, page models.Page) ([]MemberLastAttempt, models.PageInfo, error) {
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, companyID); err != nil {
		return nil, models.PageInfo{}, err
	}

	employees, total, err := s.repo.ListEmployees(ctx, &db.EmployeeFilter{
		CompanyID: &companyID,
		NotRole:   utils.Ptr(models.RoleCandidate),
	}, page)
	if err != nil {
		return nil, models.PageInfo{}, err
	}

	attempts := make([]MemberLastAttempt, 0, len(employees))
	for _, employee := range employees {
		last, err := s.repo.LastResultTime(ctx, employee.UserID, companyID)
		if err != nil {
			return nil, models.PageInfo{}, err
		}
		attempts = append(attempts, MemberLastAttempt{Employee: employee, LastCompleted: last})
	}
	return attempts, models.NewPageInfo(total, page.Limit), nil
}
