package quiz

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/quizhive/quizhive/internal/quizhive/votestore"
)

// Export is a downloadable rendering of cached vote records. Exports read
// the ephemeral store only and never touch QuizResult.
type Export struct {
	Filename    string
	ContentType string
	Content     []byte
}

var csvHeader = []string{"question_text", "answer_text", "is_correct", "correct_answer"}

func renderCSV(filename string, records []votestore.Record) (*Export, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{r.QuestionText, r.AnswerText, strconv.FormatBool(r.IsCorrect), r.CorrectAnswer}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &Export{
		Filename:    filename,
		ContentType: "text/csv",
		Content:     buf.Bytes(),
	}, nil
}

func renderJSON(filename string, records []votestore.Record) (*Export, error) {
	content, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    filename,
		ContentType: "application/json",
		Content:     content,
	}, nil
}

// ExportMyVotesCSV renders the caller's own records for a quiz.
func (s *Service) ExportMyVotesCSV(ctx context.Context, userID, quizID uint) (*Export, error) {
	records, err := s.MyVotes(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	return renderCSV(fmt.Sprintf("%d_%d.csv", userID, quizID), records)
}

// ExportMyVotesJSON is the JSON twin of ExportMyVotesCSV.
func (s *Service) ExportMyVotesJSON(ctx context.Context, userID, quizID uint) (*Export, error) {
	records, err := s.MyVotes(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	return renderJSON(fmt.Sprintf("%d_%d.json", userID, quizID), records)
}

// ExportMemberVotesCSV renders one member's records within a company.
// Admin/owner only.
func (s *Service) ExportMemberVotesCSV(ctx context.Context, callerID, companyID, quizID, memberID uint) (*Export, error) {
	records, err := s.MemberVotes(ctx, callerID, companyID, quizID, memberID)
	if err != nil {
		return nil, err
	}
	return renderCSV(fmt.Sprintf("%d_%d_%d.csv", companyID, memberID, quizID), records)
}

// ExportMemberVotesJSON is the JSON twin of ExportMemberVotesCSV.
func (s *Service) ExportMemberVotesJSON(ctx context.Context, callerID, companyID, quizID, memberID uint) (*Export, error) {
	records, err := s.MemberVotes(ctx, callerID, companyID, quizID, memberID)
	if err != nil {
		return nil, err
	}
	return renderJSON(fmt.Sprintf("%d_%d_%d.json", companyID, memberID, quizID), records)
}

// ExportCompanyVotesCSV renders every member's records for a company quiz.
// Admin/owner only.
func (s *Service) ExportCompanyVotesCSV(ctx context.Context, callerID, companyID, quizID uint) (*Export, error) {
	records, err := s.CompanyVotes(ctx, callerID, companyID, quizID)
	if err != nil {
		return nil, err
	}
	return renderCSV(fmt.Sprintf("%d_all_members_%d.csv", companyID, quizID), records)
}

// ExportCompanyVotesJSON is the JSON twin of ExportCompanyVotesCSV.
func (s *Service) ExportCompanyVotesJSON(ctx context.Context, callerID, companyID, quizID uint) (*Export, error) {
	records, err := s.CompanyVotes(ctx, callerID, companyID, quizID)
	if err != nil {
		return nil, err
	}
	return renderJSON(fmt.Sprintf("%d_all_members_%d.json", companyID, quizID), records)
}
