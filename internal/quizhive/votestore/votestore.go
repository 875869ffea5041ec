// Package votestore keeps per-question vote details in redis for short-lived
// review and export. Records expire after 48 hours; QuizResult remains the
// system of record for scoring history.
package votestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TTL bounds the lifetime of every vote record.
const TTL = 48 * time.Hour

// Record is one answered question of one attempt.
type Record struct {
	QuestionText  string `json:"question_text"`
	AnswerText    string `json:"answer_text"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
}

type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// NewClient connects a plain redis client.
func NewClient(addr, password string, database int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})
}

// recordKey namespaces a record by voter, company, quiz and question. The
// uuid suffix keeps repeated attempts on the same question from colliding.
func recordKey(userID, companyID, quizID, questionID uint) string {
	return fmt.Sprintf("user:%d:company:%d:quiz_id:%d:question_id:%d:uuid%s",
		userID, companyID, quizID, questionID, uuid.NewString())
}

// UserQuizPattern matches the caller's own records for one quiz across all
// companies.
func UserQuizPattern(userID, quizID uint) string {
	return fmt.Sprintf("user:%d:*:quiz_id:%d:*", userID, quizID)
}

// MemberPattern matches one member's records for one quiz within a company.
func MemberPattern(userID, companyID, quizID uint) string {
	return fmt.Sprintf("user:%d:company:%d:quiz_id:%d:*", userID, companyID, quizID)
}

// CompanyPattern matches every member's records for one quiz within a
// company.
func CompanyPattern(companyID, quizID uint) string {
	return fmt.Sprintf("*:company:%d:quiz_id:%d:*", companyID, quizID)
}

// Save writes one record under a fresh key with the standard TTL.
func (s *Store) Save(ctx context.Context, userID, companyID, quizID, questionID uint, record *Record) error {
	value, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := recordKey(userID, companyID, quizID, questionID)
	return s.rdb.Set(ctx, key, value, TTL).Err()
}

// Scan collects every record whose key matches the glob pattern. Keys that
// expire between the scan and the read are skipped. The result is
// eventually-consistent with in-flight writes.
func (s *Store) Scan(ctx context.Context, pattern string) ([]Record, error) {
	var records []Record
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		value, err := s.rdb.Get(ctx, iter.Val()).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		var record Record
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
