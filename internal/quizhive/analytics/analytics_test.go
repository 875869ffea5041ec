package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/quizhive/quizhive/internal/quizhive/access"
	"github.com/quizhive/quizhive/internal/quizhive/db"
	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Service
	repo    *db.Repository
	owner   *models.User
	company *models.Company
	quiz    *models.Quiz
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, db.Migrate(gdb), "failed to migrate test database")
	repo := db.New(gdb)

	owner := &models.User{Email: "owner@example.com"}
	require.NoError(t, repo.CreateUser(ctx, owner))
	company := &models.Company{Name: "Analytics Co"}
	require.NoError(t, repo.CreateCompany(ctx, company))
	require.NoError(t, repo.CreateEmployee(ctx, &models.Employee{
		UserID:    owner.ID,
		CompanyID: company.ID,
		Role:      models.RoleOwner,
	}))
	quiz := &models.Quiz{CompanyID: company.ID, UserID: owner.ID, Title: "Tracked"}
	require.NoError(t, repo.CreateQuiz(ctx, quiz))

	return &fixture{
		svc:     NewService(repo, access.NewGate(repo), zaptest.NewLogger(t)),
		repo:    repo,
		owner:   owner,
		company: company,
		quiz:    quiz,
	}
}

func (f *fixture) addResult(t *testing.T, userID uint, totalQuestion, totalCorrect int, at time.Time) {
	t.Helper()
	score := 0.0
	if totalQuestion > 0 {
		score = float64(totalCorrect) / float64(totalQuestion) * 100
	}
	require.NoError(t, f.repo.CreateQuizResult(context.Background(), &models.QuizResult{
		UserID:        userID,
		QuizID:        f.quiz.ID,
		CompanyID:     f.company.ID,
		TotalQuestion: totalQuestion,
		TotalAnswers:  totalCorrect,
		Score:         score,
		Timestamp:     at,
	}))
}

// TestAverages checks the company and system means with rounding.
func TestAverages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	now := time.Now().UTC()
	f.addResult(t, f.owner.ID, 3, 1, now.Add(-2*time.Hour)) // 33.33...
	f.addResult(t, f.owner.ID, 2, 2, now.Add(-time.Hour))   // 100

	companyAvg, err := f.svc.CompanyAverage(ctx, f.owner.ID, f.company.ID)
	require.NoError(t, err)
	assert.InDelta(t, 66.67, companyAvg, 0.01, "average should be rounded to two decimals")

	systemAvg, err := f.svc.SystemAverage(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.InDelta(t, companyAvg, systemAvg, 0.01, "single-company user has equal averages")
}

// TestAveragesEmpty yields zero without attempts.
func TestAveragesEmpty(t *testing.T) {
	f := setup(t)

	avg, err := f.svc.SystemAverage(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Zero(t, avg)
}

// TestUserQuizTrends accumulates totals across attempts in order.
func TestUserQuizTrends(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	now := time.Now().UTC()
	f.addResult(t, f.owner.ID, 2, 2, now.Add(-2*time.Hour)) // running 2/2 = 100
	f.addResult(t, f.owner.ID, 2, 0, now.Add(-time.Hour))   // running 2/4 = 50
	f.addResult(t, f.owner.ID, 2, 1, now)                   // running 3/6 = 50

	trends, err := f.svc.UserQuizTrends(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, trends, 1)

	trend := trends[0]
	assert.Equal(t, f.quiz.ID, trend.QuizID)
	require.Len(t, trend.Attempts, 3)

	assert.Equal(t, 2, trend.Attempts[0].TotalQuestion)
	assert.Equal(t, float64(100), trend.Attempts[0].AverageScore)

	assert.Equal(t, 4, trend.Attempts[1].TotalQuestion)
	assert.Equal(t, 2, trend.Attempts[1].TotalCorrectAnswers)
	assert.Equal(t, float64(50), trend.Attempts[1].AverageScore)

	assert.Equal(t, 6, trend.Attempts[2].TotalQuestion)
	assert.Equal(t, 3, trend.Attempts[2].TotalCorrectAnswers)
	assert.Equal(t, float64(50), trend.Attempts[2].AverageScore)
}

// TestQuizMemberTrends groups attempts by member and requires the gate.
func TestQuizMemberTrends(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	member := &models.User{Email: "member@example.com"}
	require.NoError(t, f.repo.CreateUser(ctx, member))
	require.NoError(t, f.repo.CreateEmployee(ctx, &models.Employee{
		UserID:    member.ID,
		CompanyID: f.company.ID,
		Role:      models.RoleMember,
	}))

	now := time.Now().UTC()
	f.addResult(t, f.owner.ID, 2, 2, now.Add(-time.Hour))
	f.addResult(t, member.ID, 2, 1, now)

	trends, err := f.svc.QuizMemberTrends(ctx, f.repo, f.owner.ID, f.company.ID, f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, trends, 2, "one trend per member")
	assert.Equal(t, f.owner.Email, trends[0].User.Email)
	assert.Equal(t, member.Email, trends[1].User.Email)

	_, err = f.svc.QuizMemberTrends(ctx, f.repo, member.ID, f.company.ID, f.quiz.ID)
	assert.ErrorIs(t, err, e.ErrForbidden, "plain members must not read company trends")
}

// TestAvailableQuizzes reports the last completion, now for never-taken.
func TestAvailableQuizzes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	taken := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Second)
	f.addResult(t, f.owner.ID, 2, 2, taken)

	fresh := &models.Quiz{CompanyID: f.company.ID, UserID: f.owner.ID, Title: "Untaken"}
	require.NoError(t, f.repo.CreateQuiz(ctx, fresh))

	availability, info, err := f.svc.AvailableQuizzes(ctx, f.owner.ID, models.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.TotalItem)
	require.Len(t, availability, 2)

	byID := map[uint]QuizAvailability{}
	for _, a := range availability {
		byID[a.Quiz.ID] = a
	}
	assert.WithinDuration(t, taken, byID[f.quiz.ID].LastCompleted, time.Second)
	assert.WithinDuration(t, time.Now().UTC(), byID[fresh.ID].LastCompleted, time.Minute,
		"never-taken quizzes report the query time")
}

// TestMembersLastAttempt lists non-candidates with their latest attempt.
func TestMembersLastAttempt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	member := &models.User{Email: "member@example.com"}
	require.NoError(t, f.repo.CreateUser(ctx, member))
	require.NoError(t, f.repo.CreateEmployee(ctx, &models.Employee{
		UserID:    member.ID,
		CompanyID: f.company.ID,
		Role:      models.RoleMember,
	}))
	candidate := &models.User{Email: "candidate@example.com"}
	require.NoError(t, f.repo.CreateUser(ctx, candidate))
	require.NoError(t, f.repo.CreateEmployee(ctx, &models.Employee{
		UserID:    candidate.ID,
		CompanyID: f.company.ID,
		Role:      models.RoleCandidate,
	}))

	latest := time.Now().UTC().Truncate(time.Second)
	f.addResult(t, member.ID, 2, 1, latest)

	attempts, info, err := f.svc.MembersLastAttempt(ctx, f.owner.ID, f.company.ID, models.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.TotalItem, "candidates are excluded")
	require.Len(t, attempts, 2)

	byUser := map[uint]MemberLastAttempt{}
	for _, a := range attempts {
		byUser[a.Employee.UserID] = a
	}
	assert.Nil(t, byUser[f.owner.ID].LastCompleted, "no attempts yields nil")
	require.NotNil(t, byUser[member.ID].LastCompleted)
	assert.WithinDuration(t, latest, *byUser[member.ID].LastCompleted, time.Second)
}
