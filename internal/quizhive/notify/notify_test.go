package notify

import (
	"context"
	"testing"

	"github.com/quizhive/quizhive/internal/quizhive/db"
	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/events"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	svc       *Service
	repo      *db.Repository
	company   *models.Company
	member    *models.User
	candidate *models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, db.Migrate(gdb), "failed to migrate test database")
	repo := db.New(gdb)

	company := &models.Company{Name: "Notify Co"}
	require.NoError(t, repo.CreateCompany(ctx, company))

	member := &models.User{Email: "member@example.com"}
	require.NoError(t, repo.CreateUser(ctx, member))
	require.NoError(t, repo.CreateEmployee(ctx, &models.Employee{
		UserID:    member.ID,
		CompanyID: company.ID,
		Role:      models.RoleMember,
	}))

	candidate := &models.User{Email: "candidate@example.com"}
	require.NoError(t, repo.CreateUser(ctx, candidate))
	require.NoError(t, repo.CreateEmployee(ctx, &models.Employee{
		UserID:    candidate.ID,
		CompanyID: company.ID,
		Role:      models.RoleCandidate,
	}))

	return &fixture{
		svc:       NewService(repo, zaptest.NewLogger(t)),
		repo:      repo,
		company:   company,
		member:    member,
		candidate: candidate,
	}
}

// TestFanOut notifies members and skips candidates.
func TestFanOut(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := models.Page{Limit: 10}

	require.NoError(t, f.svc.FanOut(ctx, f.company.ID, 42, "Safety Basics"))

	mine, info, err := f.svc.MyNotifications(ctx, f.member.ID, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.TotalItem)
	require.Len(t, mine, 1)
	assert.Equal(t, `New quiz "Safety Basics" is available!`, mine[0].Message)
	assert.EqualValues(t, 42, mine[0].QuizID)
	assert.False(t, mine[0].IsRead)

	_, info, err = f.svc.MyNotifications(ctx, f.candidate.ID, page)
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.TotalItem, "candidates receive nothing")
}

// TestHandleEvent only reacts to quiz-created events.
func TestHandleEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	quiz := &models.Quiz{ID: 7, CompanyID: f.company.ID, Title: "Eventful"}

	require.NoError(t, f.svc.HandleEvent(ctx, events.Event{Type: events.QuizDeleted, Quiz: quiz}))
	require.NoError(t, f.svc.HandleEvent(ctx, events.Event{Type: events.QuizCreated, Quiz: nil}))

	_, info, err := f.svc.MyNotifications(ctx, f.member.ID, models.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.TotalItem, "non-creation events must not fan out")

	require.NoError(t, f.svc.HandleEvent(ctx, events.Event{Type: events.QuizCreated, Quiz: quiz}))

	mine, _, err := f.svc.MyNotifications(ctx, f.member.ID, models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.EqualValues(t, quiz.ID, mine[0].QuizID)
}

// TestMarkRead flips the flag for the recipient only.
func TestMarkRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.svc.FanOut(ctx, f.company.ID, 42, "Safety Basics"))
	mine, _, err := f.svc.MyNotifications(ctx, f.member.ID, models.Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	err = f.svc.MarkRead(ctx, f.candidate.ID, mine[0].ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "someone else's notification reads as absent")

	require.NoError(t, f.svc.MarkRead(ctx, f.member.ID, mine[0].ID))
	updated, _, err := f.svc.MyNotifications(ctx, f.member.ID, models.Page{Limit: 1})
	require.NoError(t, err)
	assert.True(t, updated[0].IsRead)

	assert.ErrorIs(t, f.svc.MarkRead(ctx, f.member.ID, 9999), e.ErrNotFound)
}
