package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("lz4"),
		WithRequiredAcks(-1),
		WithBatching(10, 50*time.Millisecond),
		WithHashByKey(true),
		WithAsync(true),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, kafka.Lz4, p.writer.Compression)
	assert.Equal(t, kafka.RequireAll, p.writer.RequiredAcks)
	assert.Equal(t, 10, p.writer.BatchSize)
	assert.True(t, p.writer.Async)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
}

func TestEncodeMessages(t *testing.T) {
	at := time.Unix(1700000000, 0)
	msgs, n, err := encodeMessages("frames", []Message{
		{Key: []byte("a"), Value: []byte("raw")},
		{Key: []byte("b"), Value: map[string]int{"x": 1}, Headers: map[string]string{"kind": "markers"}},
	}, at)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "raw", string(msgs[0].Value))
	assert.JSONEq(t, `{"x":1}`, string(msgs[1].Value))
	assert.Equal(t, int64(3+len(msgs[1].Value)), n)
	assert.Equal(t, "frames", msgs[1].Topic)
	assert.Equal(t, at, msgs[1].Time)
	require.Len(t, msgs[1].Headers, 1)
	assert.Equal(t, "kind", msgs[1].Headers[0].Key)
}

func TestEncodeMessagesRejectsUnencodable(t *testing.T) {
	_, _, err := encodeMessages("frames", []Message{{Value: make(chan int)}}, time.Now())
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Compression(0), parseCompression("none"))
	assert.Equal(t, kafka.Snappy, parseCompression("bogus"))
}
