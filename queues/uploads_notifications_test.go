package queues

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/caching"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/Yulian302/lfusys-services-recordings/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSQS hands out queued messages once and records sends and deletes.
type fakeSQS struct {
	mu       sync.Mutex
	pending  []types.Message
	sent     []*sqs.SendMessageInput
	deleted  []string
	sendErr  error
	received chan struct{}
}

func newFakeSQS() *fakeSQS {
	return &fakeSQS{received: make(chan struct{}, 16)}
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m")}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	msgs := f.pending
	f.pending = nil
	f.mu.Unlock()

	if len(msgs) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	defer func() { f.received <- struct{}{} }()
	return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) GetQueueUrl(_ context.Context, in *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String("http://localhost:4566/000000000000/" + aws.ToString(in.QueueName))}, nil
}

func (f *fakeSQS) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func completedEvent(fileID string) models.UploadCompletedEvent {
	return models.UploadCompletedEvent{
		UploadId:    "u-" + fileID,
		FileId:      fileID,
		OwnerId:     "user-1",
		FileName:    "standup.webm",
		MimeType:    "audio/webm",
		Size:        12,
		TotalChunks: 2,
		Key:         "audio/user-1/" + fileID + ".webm",
		CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func message(handle string, body string) types.Message {
	return types.Message{
		MessageId:     aws.String(handle),
		ReceiptHandle: aws.String(handle),
		Body:          aws.String(body),
	}
}

func TestSqsUploadsNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("standard queue", func(t *testing.T) {
		fake := newFakeSQS()
		n := NewSqsUploadsNotifier(fake, "http://localhost:4566/000000000000/uploads")
		require.NoError(t, n.NotifyUploadCompleted(ctx, completedEvent("f1")))

		require.Len(t, fake.sent, 1)
		assert.Nil(t, fake.sent[0].MessageGroupId)

		var got models.UploadCompletedEvent
		require.NoError(t, json.Unmarshal([]byte(aws.ToString(fake.sent[0].MessageBody)), &got))
		assert.Equal(t, completedEvent("f1"), got)
	})

	t.Run("fifo queue", func(t *testing.T) {
		fake := newFakeSQS()
		n := NewSqsUploadsNotifier(fake, "http://localhost:4566/000000000000/uploads.fifo")
		require.NoError(t, n.NotifyUploadCompleted(ctx, completedEvent("f1")))

		require.Len(t, fake.sent, 1)
		assert.Equal(t, "user-1", aws.ToString(fake.sent[0].MessageGroupId))
		assert.Equal(t, "f1", aws.ToString(fake.sent[0].MessageDeduplicationId))
	})

	t.Run("send failure", func(t *testing.T) {
		fake := newFakeSQS()
		fake.sendErr = errors.New("throttled")
		n := NewSqsUploadsNotifier(fake, "q")
		assert.Error(t, n.NotifyUploadCompleted(ctx, completedEvent("f1")))
	})
}

func TestResolveQueueURL(t *testing.T) {
	url, err := ResolveQueueURL(context.Background(), newFakeSQS(), "uploads")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566/000000000000/uploads", url)
}

func TestInlineNotifierRegistersFile(t *testing.T) {
	ctx := context.Background()
	files := store.NewMemoryFileStore()
	catalog := NewFileCatalog(files, caching.NewNullCachingService(), logging.NewNopLogger())

	require.NoError(t, NewInlineUploadsNotifier(catalog).NotifyUploadCompleted(ctx, completedEvent("f1")))

	got, err := files.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.OwnerId)
	assert.Equal(t, models.FileStatusCompleted, got.Status)
	assert.Equal(t, int64(12), got.Size)
}

func TestReceiverHandlesMessages(t *testing.T) {
	files := store.NewMemoryFileStore()
	catalog := NewFileCatalog(files, caching.NewNullCachingService(), logging.NewNopLogger())

	bad := completedEvent("")
	badBody, _ := json.Marshal(bad)
	goodBody, _ := json.Marshal(completedEvent("f1"))

	fake := newFakeSQS()
	fake.pending = []types.Message{
		message("good", string(goodBody)),
		message("garbage", "{not json"),
		message("invalid", string(badBody)),
		{MessageId: aws.String("empty"), ReceiptHandle: aws.String("empty")},
	}

	r := NewUploadsNotifyReceiverImpl(context.Background(), fake, catalog, "q", logging.NewNopLogger())
	r.Start()

	select {
	case <-fake.received:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver never polled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	assert.ElementsMatch(t, []string{"good", "garbage", "invalid", "empty"}, fake.deletedHandles())

	_, err := files.Get(context.Background(), "f1")
	assert.NoError(t, err)
}

type failingFileStore struct {
	*store.MemoryFileStore
}

func (failingFileStore) Create(context.Context, models.File) error {
	return errors.New("dynamodb throttled")
}

func TestReceiverKeepsMessageOnTransientFailure(t *testing.T) {
	catalog := NewFileCatalog(failingFileStore{store.NewMemoryFileStore()}, caching.NewNullCachingService(), logging.NewNopLogger())
	body, _ := json.Marshal(completedEvent("f1"))

	fake := newFakeSQS()
	fake.pending = []types.Message{message("retry-me", string(body))}

	r := NewUploadsNotifyReceiverImpl(context.Background(), fake, catalog, "q", logging.NewNopLogger())
	r.Start()

	select {
	case <-fake.received:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver never polled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	assert.Empty(t, fake.deletedHandles())
}
