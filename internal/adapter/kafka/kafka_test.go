package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testFeature(city string, values ...int) domain.Feature {
	return domain.Feature{
		Attributes: domain.Attributes{Date: "2026-01-02", Region: "Lviv", City: city, Values: values},
		Geometry:   domain.Geometry{X: 24.03, Y: 49.84, SpatialReference: domain.SpatialReference{WKID: 4326}},
	}
}

func testWriter(fw *fakeWriter) *Writer {
	return &Writer{writer: fw, runID: "run-1", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testFeature("Lviv", 1, 0), "run-1")
	require.NoError(t, err)

	assert.Equal(t, []byte("Lviv|Lviv|2026-01-02"), msg.Key)
	assert.JSONEq(t, `{
		"attributes": {"date":"2026-01-02","region":"Lviv","city":"Lviv","value_1":1,"value_2":0},
		"geometry": {"x":24.03,"y":49.84,"spatialReference":{"wkid":4326}}
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "region", msg.Headers[1].Key)
	assert.Equal(t, []byte("Lviv"), msg.Headers[1].Value)
}

func TestWriter_SubmitBatch(t *testing.T) {
	fw := &fakeWriter{}
	w := testWriter(fw)

	res, err := w.SubmitBatch(context.Background(), []domain.Feature{
		testFeature("Lviv", 1), testFeature("Stryi", 1),
	})
	require.NoError(t, err)
	assert.Nil(t, res, "kafka reports no per-item results")
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("Lviv|Stryi|2026-01-02"), fw.msgs[1].Key)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_SubmitBatch_Empty(t *testing.T) {
	fw := &fakeWriter{}
	res, err := testWriter(fw).SubmitBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, fw.msgs)
}

func TestWriter_SubmitBatch_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unavailable")}
	_, err := testWriter(fw).SubmitBatch(context.Background(), []domain.Feature{testFeature("Lviv", 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}
