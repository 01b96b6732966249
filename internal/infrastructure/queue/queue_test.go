package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	published []amqp.Publishing
	keys      []string
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return errors.New("channel closed")
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

type fakeAcknowledger struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeJob(t *testing.T) {
	body, err := json.Marshal(NewSyncLocationJob("loc-1", "req-1"))
	require.NoError(t, err)

	job, err := DecodeJob(body)
	require.NoError(t, err)
	assert.Equal(t, constants.MessageTypeSyncLocation, job.Type)
	assert.Equal(t, "loc-1", job.LocationID)
	assert.Equal(t, "sync_location_loc-1", job.ID)

	_, err = DecodeJob([]byte(`{"type":"auto_reply_sweep"}`))
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = DecodeJob([]byte(`{"type":"reindex"}`))
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = DecodeJob([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidJob)
}

func TestPublishBatchWritesPersistentMessages(t *testing.T) {
	ch := &fakeChannel{}
	publisher := newPublisher(ch, "review-jobs")

	err := publisher.PublishBatch(context.Background(), []Job{
		NewSyncLocationJob("loc-1", "req"),
		NewAutoReplySweepJob("biz-1", "req"),
	})

	require.NoError(t, err)
	require.Len(t, ch.published, 2)
	assert.Equal(t, []string{"review-jobs", "review-jobs"}, ch.keys)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, "sync_location_loc-1", ch.published[0].MessageId)
	assert.Equal(t, constants.MessageTypeAutoReplySweep, ch.published[1].Type)
}

func TestPublishWithRetry(t *testing.T) {
	t.Run("recovers after transient failure", func(t *testing.T) {
		ch := &fakeChannel{failFirst: 1}
		publisher := newPublisher(ch, "q")
		publisher.backoff = func(int) time.Duration { return time.Millisecond }

		err := publisher.PublishWithRetry(context.Background(), []Job{NewSyncLocationJob("loc-1", "")}, 3)

		require.NoError(t, err)
		assert.Len(t, ch.published, 1)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		ch := &fakeChannel{failFirst: 10}
		publisher := newPublisher(ch, "q")
		publisher.backoff = func(int) time.Duration { return time.Millisecond }

		err := publisher.PublishWithRetry(context.Background(), []Job{NewSyncLocationJob("loc-1", "")}, 2)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "publish failed after 2 attempts")
		assert.Equal(t, 2, ch.calls)
	})
}

func TestHandleDeliveries(t *testing.T) {
	ack := &fakeAcknowledger{}
	good, _ := json.Marshal(NewAutoReplySweepJob("biz-1", ""))
	failing, _ := json.Marshal(NewSyncLocationJob("loc-broken", ""))

	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: good}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{}`)}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: failing}
	close(deliveries)

	var handled []string
	err := HandleDeliveries(context.Background(), deliveries, func(_ context.Context, job Job) error {
		handled = append(handled, job.ID)
		if job.LocationID == "loc-broken" {
			return errors.New("boom")
		}
		return nil
	}, discardLogger())

	require.Error(t, err)
	assert.Equal(t, []string{"auto_reply_sweep_biz-1", "sync_location_loc-broken"}, handled)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2, 3}, ack.nacked)
	assert.Equal(t, []bool{false, false}, ack.requeue)
}

type recordingDeclarer struct {
	names []string
	args  []amqp.Table
	fail  string
}

func (r *recordingDeclarer) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	if name == r.fail {
		return amqp.Queue{}, errors.New("PRECONDITION_FAILED")
	}
	r.names = append(r.names, name)
	r.args = append(r.args, args)
	return amqp.Queue{Name: name}, nil
}

func TestDeclareJobQueueRoutesFailuresToDeadLetterQueue(t *testing.T) {
	declarer := &recordingDeclarer{}

	require.NoError(t, declareJobQueue(declarer, "review-jobs"))

	assert.Equal(t, []string{"review-jobs.dead", "review-jobs"}, declarer.names)
	assert.Nil(t, declarer.args[0])
	assert.Equal(t, "", declarer.args[1]["x-dead-letter-exchange"])
	assert.Equal(t, "review-jobs.dead", declarer.args[1]["x-dead-letter-routing-key"])
}

func TestDeclareJobQueueReportsConflict(t *testing.T) {
	err := declareJobQueue(&recordingDeclarer{fail: "review-jobs"}, "review-jobs")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to declare queue review-jobs")
}
