package quiz

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/quizhive/quizhive/internal/quizhive/models"
	"github.com/quizhive/quizhive/internal/quizhive/votestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExportMyVotesCSV renders cached records with the semicolon delimiter.
func TestExportMyVotesCSV(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	quiz, err := f.svc.CreateQuiz(ctx, f.owner.ID, f.company.ID, validInput())
	require.NoError(t, err)
	submit(t, f, quiz, func(q models.Question) uint { return answerWhere(q, true) })

	export, err := f.svc.ExportMyVotesCSV(ctx, f.owner.ID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", export.ContentType)
	assert.Contains(t, export.Filename, ".csv")

	lines := strings.Split(strings.TrimSpace(string(export.Content)), "\n")
	require.Len(t, lines, 3, "header plus one row per answered question")
	assert.Equal(t, "question_text;answer_text;is_correct;correct_answer", lines[0])
	for _, line := range lines[1:] {
		assert.Contains(t, line, ";true;")
	}
}

// TestExportMyVotesCSVEmpty still produces a header-only file.
func TestExportMyVotesCSVEmpty(t *testing.T) {
	f := setup(t)

	export, err := f.svc.ExportMyVotesCSV(context.Background(), f.owner.ID, 12345)
	require.NoError(t, err)
	assert.Equal(t, "question_text;answer_text;is_correct;correct_answer\n", string(export.Content))
}

// TestExportMyVotesJSON round-trips the records through the JSON rendering.
func TestExportMyVotesJSON(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	quiz, err := f.svc.CreateQuiz(ctx, f.owner.ID, f.company.ID, validInput())
	require.NoError(t, err)
	submit(t, f, quiz, func(q models.Question) uint { return answerWhere(q, true) })

	export, err := f.svc.ExportMyVotesJSON(ctx, f.owner.ID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/json", export.ContentType)

	var records []votestore.Record
	require.NoError(t, json.Unmarshal(export.Content, &records))
	assert.Len(t, records, 2)
}

// TestExportCompanyVotesGate applies the admin gate before reading anything.
func TestExportCompanyVotesGate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	member := &models.User{Email: "member@example.com"}
	require.NoError(t, f.repo.CreateUser(ctx, member))
	require.NoError(t, f.repo.CreateEmployee(ctx, &models.Employee{
		UserID:    member.ID,
		CompanyID: f.company.ID,
		Role:      models.RoleMember,
	}))

	_, err := f.svc.ExportCompanyVotesCSV(ctx, member.ID, f.company.ID, 1)
	assert.Error(t, err, "plain members must not export company attempts")
}
