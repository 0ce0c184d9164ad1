package statistics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlavaShagalov/spotify-auth/internal/requests/repository"
)

type fakeWriter struct {
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

type fakeReader struct {
	messages []kafka.Message
	pos      int
	rewinds  []int64
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.pos >= len(r.messages) {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}

	msg := r.messages[r.pos]
	r.pos++
	return msg, nil
}

func (r *fakeReader) SetOffset(offset int64) error {
	r.rewinds = append(r.rewinds, offset)
	for i, msg := range r.messages {
		if msg.Offset == offset {
			r.pos = i
		}
	}
	return nil
}

type fakeSaver struct {
	errs   []error
	calls  int
	saved  []repository.Request
	onSave func()
}

func (s *fakeSaver) SaveRequest(_ context.Context, req repository.Request) error {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return err
		}
	}

	s.saved = append(s.saved, req)
	if s.onSave != nil {
		s.onSave()
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testRequest = Request{
	Method:  "GET",
	URL:     "/auth/callback?code=%5BREDACTED%5D",
	Status:  302,
	Headers: "Cookie: [REDACTED]\r\n",
}

func TestKafkaStatistics_PushThenSave(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewKafkaStatistics(nil, writer, nil, testLogger())

	require.NoError(t, publisher.Push(context.Background(), testRequest))
	require.Len(t, writer.messages, 1)
	assert.NotEmpty(t, writer.messages[0].Key)

	msg := writer.messages[0]
	msg.Offset = 7
	reader := &fakeReader{messages: []kafka.Message{msg}}
	saver := &fakeSaver{}
	consumer := NewKafkaStatistics(reader, nil, saver, testLogger())

	require.NoError(t, consumer.SaveRequest(context.Background()))
	assert.Equal(t, []repository.Request{{
		Method:  testRequest.Method,
		URL:     testRequest.URL,
		Status:  testRequest.Status,
		Headers: testRequest.Headers,
	}}, saver.saved)
	assert.Empty(t, reader.rewinds)
}

func TestKafkaStatistics_MissingEnds(t *testing.T) {
	stat := NewKafkaStatistics(nil, nil, nil, testLogger())

	assert.ErrorIs(t, stat.Push(context.Background(), testRequest), ErrNoWriter)
	assert.ErrorIs(t, stat.SaveRequest(context.Background()), ErrNoReader)
	assert.ErrorIs(t, stat.Consume(context.Background(), time.Millisecond), ErrNoReader)
}

func TestKafkaStatistics_SkipsMalformedMessage(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, NewKafkaStatistics(nil, writer, nil, testLogger()).Push(context.Background(), testRequest))

	valid := writer.messages[0]
	valid.Offset = 2
	reader := &fakeReader{messages: []kafka.Message{
		{Offset: 1, Value: []byte("{not json")},
		valid,
	}}
	saver := &fakeSaver{}
	stat := NewKafkaStatistics(reader, nil, saver, testLogger())

	require.NoError(t, stat.SaveRequest(context.Background()))
	assert.Zero(t, saver.calls)
	assert.Empty(t, reader.rewinds)

	require.NoError(t, stat.SaveRequest(context.Background()))
	assert.Len(t, saver.saved, 1)
}

func TestKafkaStatistics_RewindsOnSaveFailure(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, NewKafkaStatistics(nil, writer, nil, testLogger()).Push(context.Background(), testRequest))

	msg := writer.messages[0]
	msg.Offset = 3
	reader := &fakeReader{messages: []kafka.Message{msg}}
	saver := &fakeSaver{errs: []error{assert.AnError}}
	stat := NewKafkaStatistics(reader, nil, saver, testLogger())

	err := stat.SaveRequest(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []int64{3}, reader.rewinds)

	require.NoError(t, stat.SaveRequest(context.Background()))
	assert.Equal(t, 2, saver.calls)
	assert.Len(t, saver.saved, 1)
}

func TestKafkaStatistics_ConsumeWaitsAfterFailure(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, NewKafkaStatistics(nil, writer, nil, testLogger()).Push(context.Background(), testRequest))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reader := &fakeReader{messages: writer.messages}
	saver := &fakeSaver{errs: []error{assert.AnError}, onSave: cancel}
	stat := NewKafkaStatistics(reader, nil, saver, testLogger())

	const retryDelay = 50 * time.Millisecond
	start := time.Now()

	require.NoError(t, stat.Consume(ctx, retryDelay))
	assert.GreaterOrEqual(t, time.Since(start), retryDelay)
	assert.Equal(t, 2, saver.calls)
	assert.Len(t, saver.saved, 1)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
