package statistics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/SlavaShagalov/spotify-auth/internal/requests/repository"
)

type StatisticsError string

func (e StatisticsError) Error() string {
	return string(e)
}

const (
	ErrNoWriter StatisticsError = "statistics has no writer"
	ErrNoReader StatisticsError = "statistics has no reader"
)

const topicCreationDelay = 5 * time.Second

// Request is one gateway request with credentials already masked.
type Request struct {
	Method  string `json:"method"`
	URL     string `json:"url"`
	Status  int    `json:"status"`
	Headers string `json:"headers"`
}

type RequestSaver interface {
	SaveRequest(ctx context.Context, req repository.Request) error
}

// MessageReader is the consuming side of *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	SetOffset(offset int64) error
}

// MessageWriter is the producing side of *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaStatistics struct {
	reader MessageReader
	writer MessageWriter
	saver  RequestSaver
	logger *slog.Logger
}

// NewKafkaStatistics builds a publisher (writer set), a consumer (reader and
// saver set), or both.
func NewKafkaStatistics(reader MessageReader, writer MessageWriter, saver RequestSaver, logger *slog.Logger) *KafkaStatistics {
	return &KafkaStatistics{
		reader: reader,
		writer: writer,
		saver:  saver,
		logger: logger,
	}
}

func (s *KafkaStatistics) Push(ctx context.Context, req Request) error {
	if s.writer == nil {
		return ErrNoWriter
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshal statistics request")
	}

	key := uuid.New().String()
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}
	s.logger.Debug("write message to kafka...", slog.String("key", key))

	err = s.writer.WriteMessages(ctx, msg)
	if errors.Is(err, kafka.UnknownTopicOrPartition) {
		time.Sleep(topicCreationDelay)
		err = s.writer.WriteMessages(ctx, msg)
	}

	return err
}

// SaveRequest consumes one message and stores it. A message that does not
// decode is logged and skipped. When the saver fails the reader is rewound to
// the message so it is read again.
func (s *KafkaStatistics) SaveRequest(ctx context.Context) error {
	if s.reader == nil || s.saver == nil {
		return ErrNoReader
	}

	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}

	s.logger.Debug("read message from kafka",
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("key", string(msg.Key)),
	)

	var req Request
	if err = json.Unmarshal(msg.Value, &req); err != nil {
		s.logger.Warn("skip malformed statistics message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return nil
	}

	err = s.saver.SaveRequest(ctx, repository.Request{
		Method:  req.Method,
		URL:     req.URL,
		Status:  req.Status,
		Headers: req.Headers,
	})
	if err != nil {
		return multierror.Append(err, s.reader.SetOffset(msg.Offset))
	}

	return nil
}

// Consume saves messages until ctx is done. After a failed save it waits
// retryDelay before reading again.
func (s *KafkaStatistics) Consume(ctx context.Context, retryDelay time.Duration) error {
	for {
		err := s.SaveRequest(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrNoReader) {
			return err
		}
		if err == nil {
			continue
		}

		s.logger.Error("save request", slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryDelay):
		}
	}
}
