package queues

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type UploadsNotifyReceiver interface {
	Start()
	Shutdown(ctx context.Context) error
}

// UploadsNotifyReceiverImpl long-polls the completion queue and registers a
// catalog record per event. Messages are deleted only once handled, so
// transient failures are retried after the visibility timeout.
type UploadsNotifyReceiverImpl struct {
	client   SQSAPI
	catalog  *FileCatalog
	queueUrl string
	logger   logging.Logger

	pollErrorDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewUploadsNotifyReceiverImpl(
	parent context.Context,
	client SQSAPI,
	catalog *FileCatalog,
	queueUrl string,
	l logging.Logger,
) *UploadsNotifyReceiverImpl {

	ctx, cancel := context.WithCancel(parent)

	return &UploadsNotifyReceiverImpl{
		client:         client,
		catalog:        catalog,
		queueUrl:       queueUrl,
		logger:         l,
		pollErrorDelay: time.Second,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (r *UploadsNotifyReceiverImpl) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.pollLoop()
	}()
}

func (r *UploadsNotifyReceiverImpl) pollLoop() error {
	r.logger.Info("uploads receiver started", "queue_url", r.queueUrl)
	for {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		default:
		}

		out, err := r.client.ReceiveMessage(r.ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(r.queueUrl),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20, // long poll
			VisibilityTimeout:   30,
		})
		if err != nil {
			if r.ctx.Err() != nil {
				return r.ctx.Err()
			}
			r.logger.Warn("receive message failed", "queue_url", r.queueUrl, "error", err)
			select {
			case <-r.ctx.Done():
				return r.ctx.Err()
			case <-time.After(r.pollErrorDelay):
			}
			continue
		}

		for _, msg := range out.Messages {
			r.handleMessage(r.ctx, msg)
		}
	}
}

func (r *UploadsNotifyReceiverImpl) deleteMessage(ctx context.Context, msg types.Message) {
	_, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.queueUrl),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		r.logger.Warn("delete message failed", "message_id", aws.ToString(msg.MessageId), "error", err)
	}
}

func (r *UploadsNotifyReceiverImpl) handleMessage(ctx context.Context, msg types.Message) {
	if msg.Body == nil {
		r.deleteMessage(ctx, msg)
		return
	}

	var evt models.UploadCompletedEvent
	if err := json.Unmarshal([]byte(*msg.Body), &evt); err != nil {
		// poison message
		r.logger.Error("undecodable upload event dropped", "message_id", aws.ToString(msg.MessageId), "error", err)
		r.deleteMessage(ctx, msg)
		return
	}

	if err := r.catalog.Register(ctx, evt); err != nil {
		if errors.Is(err, errInvalidEvent) {
			r.logger.Error("invalid upload event dropped", "message_id", aws.ToString(msg.MessageId), "error", err)
			r.deleteMessage(ctx, msg)
			return
		}
		r.logger.Warn("file registration failed, will retry", "file_id", evt.FileId, "error", err)
		return
	}

	r.deleteMessage(ctx, msg)
}

func (r *UploadsNotifyReceiverImpl) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
