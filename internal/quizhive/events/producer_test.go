package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/quizhive/quizhive/internal/quizhive/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements the KafkaWriter interface for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestProducer(logger *zap.Logger, writer KafkaWriter) *Producer {
	return &Producer{
		writer:    writer,
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}
}

func TestProducer_Produce(t *testing.T) {
	t.Run("successful produce", func(t *testing.T) {
		producer := newTestProducer(zaptest.NewLogger(t), &MockKafkaWriter{})
		quiz := &models.Quiz{ID: 1}

		producer.Produce(QuizCreated, quiz)

		assert.Equal(t, 1, len(producer.events))
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := newTestProducer(zap.New(core), &MockKafkaWriter{})
		producer.events = make(chan Event, 1) // Small buffer for test
		quiz := &models.Quiz{ID: 1}

		// Fill the channel
		producer.Produce(QuizCreated, quiz)
		producer.Produce(QuizCreated, quiz) // This should be dropped

		// Check logs
		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	t.Run("successful send", func(t *testing.T) {
		writer := &MockKafkaWriter{}
		producer := newTestProducer(zaptest.NewLogger(t), writer)
		quiz := &models.Quiz{ID: 3, Title: "Wired"}

		writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != string(QuizCreated) {
				return false
			}
			var event Event
			if err := json.Unmarshal(msgs[0].Value, &event); err != nil {
				return false
			}
			return event.Quiz != nil && event.Quiz.ID == quiz.ID
		})).Return(nil)

		producer.sendEvent(context.Background(), Event{Type: QuizCreated, Quiz: quiz})

		writer.AssertExpectations(t)
	})

	t.Run("write failure is logged", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		writer := &MockKafkaWriter{}
		producer := newTestProducer(zap.New(core), writer)

		writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

		producer.sendEvent(context.Background(), Event{Type: QuizCreated, Quiz: &models.Quiz{ID: 1}})

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_EventLoopDrains(t *testing.T) {
	writer := &MockKafkaWriter{}
	done := make(chan struct{})
	writer.On("WriteMessages", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(done)
	}).Return(nil)
	writer.On("Close").Return(nil)

	producer := newTestProducer(zaptest.NewLogger(t), writer)
	go producer.eventLoop()

	producer.Produce(QuizCreated, &models.Quiz{ID: 2})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event was not written by the loop")
	}
	producer.Close()
}
