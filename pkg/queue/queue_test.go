package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeueEmail(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	payload := EmailPayload{
		EmailType:      "registration_confirmation",
		EventID:        uuid.New(),
		RegistrationID: uuid.New(),
		RecipientEmail: "guest@example.com",
		Subject:        "You're on the list",
	}
	require.NoError(t, q.EnqueueEmail(ctx, payload))

	job, err := q.Dequeue(ctx, QueueEmails)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeEmail, job.Type)
	assert.Equal(t, QueueEmails, job.Queue)
	assert.Equal(t, 0, job.Attempt)

	var got EmailPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, payload, got)
}

func TestRetryMovesToDLQAfterMaxRetries(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, QueueEmails, JobTypeEmail, EmailPayload{RecipientEmail: "a@b.c"})
	require.NoError(t, err)
	_, err = q.Dequeue(ctx, QueueEmails)
	require.NoError(t, err)

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		n, _ := mr.List(QueueEmails)
		assert.Len(t, n, 1, "attempt %d should requeue", i)
		_, err = q.Dequeue(ctx, QueueEmails)
		require.NoError(t, err)
	}

	require.NoError(t, q.Retry(ctx, job))
	assert.Equal(t, MaxRetries, job.Attempt)
	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
	assert.False(t, mr.Exists(QueueEmails))
}
