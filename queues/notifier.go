package queues

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type UploadsNotifier interface {
	NotifyUploadCompleted(ctx context.Context, evt models.UploadCompletedEvent) error
}

// SQSAPI is the subset of *sqs.Client used by the publisher and the receiver.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, opts ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, opts ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, opts ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

// ResolveQueueURL looks the queue up by name.
func ResolveQueueURL(ctx context.Context, client SQSAPI, queueName string) (string, error) {
	out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		return "", fmt.Errorf("resolve queue %s: %w", queueName, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

type SqsUploadsNotifier struct {
	client   SQSAPI
	queueUrl string
}

func NewSqsUploadsNotifier(client SQSAPI, queueUrl string) *SqsUploadsNotifier {
	return &SqsUploadsNotifier{client: client, queueUrl: queueUrl}
}

func (n *SqsUploadsNotifier) NotifyUploadCompleted(ctx context.Context, evt models.UploadCompletedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueUrl),
		MessageBody: aws.String(string(body)),
	}
	if strings.HasSuffix(n.queueUrl, ".fifo") {
		// one group per owner keeps an owner's files in completion order
		in.MessageGroupId = aws.String(evt.OwnerId)
		in.MessageDeduplicationId = aws.String(evt.FileId)
	}

	if _, err := n.client.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("send upload completed event: %w", err)
	}
	return nil
}

// InlineUploadsNotifier registers the file in-process. Used when no queue is
// configured.
type InlineUploadsNotifier struct {
	catalog *FileCatalog
}

func NewInlineUploadsNotifier(catalog *FileCatalog) *InlineUploadsNotifier {
	return &InlineUploadsNotifier{catalog: catalog}
}

func (n *InlineUploadsNotifier) NotifyUploadCompleted(ctx context.Context, evt models.UploadCompletedEvent) error {
	return n.catalog.Register(ctx, evt)
}
