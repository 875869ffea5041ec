package quiz

import (
	"context"
	"fmt"
	"math"
	"time"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"github.com/quizhive/quizhive/internal/quizhive/votestore"
	"go.uber.org/zap"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type answeredQuestion struct {
	questionID uint
	record     votestore.Record
}

// SubmitVote grades votes (question id -> chosen answer id) against the
// stored key, appends one durable QuizResult row and writes one ephemeral
// record per answered question. Unanswered questions count toward the total
// but never toward the correct count. The durable insert is the system of
// record; the ephemeral writes are best-effort and their failure is only
// logged.
func (s *Service) SubmitVote(ctx context.Context, userID, companyID, quizID uint, votes map[uint]uint) (*models.QuizResult, error) {
	quiz, err := s.repo.GetQuizTree(ctx, quizID)
	if err != nil {
		return nil, err
	}

	totalQuestions := len(quiz.Questions)
	if totalQuestions == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", e.ErrInvalidInput)
	}

	correctCount := 0
	var answered []answeredQuestion
	for _, question := range quiz.Questions {
		chosenID, ok := votes[question.ID]
		if !ok {
			continue
		}

		var chosen *models.Answer
		var correct *models.Answer
		for i := range question.Answers {
			if question.Answers[i].ID == chosenID {
				chosen = &question.Answers[i]
			}
			if question.Answers[i].IsCorrect {
				correct = &question.Answers[i]
			}
		}
		if chosen == nil {
			continue
		}
		if chosen.IsCorrect {
			correctCount++
		}

		record := votestore.Record{
			QuestionText: question.QuestionText,
			AnswerText:   chosen.AnswerText,
			IsCorrect:    chosen.IsCorrect,
		}
		if correct != nil {
			record.CorrectAnswer = correct.AnswerText
		}
		answered = append(answered, answeredQuestion{questionID: question.ID, record: record})
	}

	result := &models.QuizResult{
		UserID:        userID,
		QuizID:        quizID,
		CompanyID:     companyID,
		TotalQuestion: totalQuestions,
		TotalAnswers:  correctCount,
		Score:         round2(float64(correctCount) / float64(totalQuestions) * 100),
		Timestamp:     time.Now().UTC(),
	}
	if err := s.repo.CreateQuizResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to persist quiz result: %w", err)
	}

	for _, a := range answered {
		if err := s.votes.Save(ctx, userID, companyID, quizID, a.questionID, &a.record); err != nil {
			s.logger.Warn("failed to cache vote record",
				zap.Error(err),
				zap.Uint("quiz_id", quizID),
				zap.Uint("question_id", a.questionID),
			)
		}
	}

	return result, nil
}

// MyVotes returns the caller's cached vote records for one quiz across all
// companies.
func (s *Service) MyVotes(ctx context.Context, userID, quizID uint) ([]votestore.Record, error) {
	return s.votes.Scan(ctx, votestore.UserQuizPattern(userID, quizID))
}

// MemberVotes returns one member's cached records for a company quiz.
// Admin/owner only.
func (s *Service) MemberVotes(ctx context.Context, callerID, companyID, quizID, memberID uint) ([]votestore.Record, error) {
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, companyID); err != nil {
		return nil, err
	}
	return s.votes.Scan(ctx, votestore.MemberPattern(memberID, companyID, quizID))
}

// CompanyVotes returns every member's cached records for a company quiz.
// Admin/owner only.
func (s *Service) CompanyVotes(ctx context.Context, callerID, companyID, quizID uint) ([]votestore.Record, error) {
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, companyID); err != nil {
		return nil, err
	}
	return s.votes.Scan(ctx, votestore.CompanyPattern(companyID, quizID))
}
