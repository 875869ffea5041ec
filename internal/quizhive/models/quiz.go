package models

import (
	"time"
)

// Quiz is the authoring aggregate. Deletion is logical only: QuizResult rows
// keep referencing the quiz id for historical analytics.
type Quiz struct {
	ID              uint   `gorm:"primaryKey"`
	CompanyID       uint   `gorm:"not null;index"`
	UserID          uint   `gorm:"not null"`
	Title           string `gorm:"size:255;not null"`
	Description     string `gorm:"size:3000"`
	FrequencyInDays int
	IsDeleted       bool `gorm:"default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Questions []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

// Question belongs to a quiz; grading iterates questions in insertion order.
type Question struct {
	ID           uint   `gorm:"primaryKey"`
	QuizID       uint   `gorm:"not null;index"`
	QuestionText string `gorm:"size:1000;not null"`

	Answers []Answer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

// Answer is one option of a question. Exactly one answer per question is
// expected to carry IsCorrect.
type Answer struct {
	ID         uint   `gorm:"primaryKey"`
	QuestionID uint   `gorm:"not null;index"`
	AnswerText string `gorm:"size:1000;not null"`
	IsCorrect  bool   `gorm:"default:false"`
}

// QuizResult is the durable, append-only record of one completed attempt.
// Rows are never mutated after insert; a user accumulates one row per
// submission.
type QuizResult struct {
	ID            uint `gorm:"primaryKey"`
	UserID        uint `gorm:"not null;index"`
	QuizID        uint `gorm:"not null;index"`
	CompanyID     uint `gorm:"not null;index"`
	TotalQuestion int
	TotalAnswers  int
	Score         float64
	Timestamp     time.Time
}
