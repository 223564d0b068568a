package store

import (
	"context"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/health"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/Yulian302/lfusys-services-recordings/retries"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FileStore is the catalog of completed recordings.
type FileStore interface {
	Get(ctx context.Context, fileID string) (*models.File, error)
	Create(ctx context.Context, file models.File) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.File, error)
	Delete(ctx context.Context, fileID string) error

	health.ReadinessCheck
}

const ownerIndexName = "owner_id-index"

type DynamoFileStore struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoFileStore(client DynamoDBAPI, tableName string) *DynamoFileStore {
	return &DynamoFileStore{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoFileStore) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})

	return err
}

func (s *DynamoFileStore) Name() string {
	return "FileStore[" + s.tableName + "]"
}

func fileKey(fileID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"file_id": &types.AttributeValueMemberS{Value: fileID},
	}
}

func (s *DynamoFileStore) Get(ctx context.Context, fileID string) (*models.File, error) {
	var file models.File

	err := retries.Retry(ctx, retries.DefaultAttempts, retries.DefaultBaseDelay, func() error {
		out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.tableName),
			Key:       fileKey(fileID),
		})
		if err != nil {
			return err
		}

		if out.Item == nil {
			return apperror.ErrFileNotFound
		}

		return attributevalue.UnmarshalMap(out.Item, &file)
	}, retries.IsRetriableDbError)
	if err != nil {
		return nil, storeError(err, "get file")
	}

	return &file, nil
}

// Create is idempotent: registering the same file id twice overwrites the
// record with identical content.
func (s *DynamoFileStore) Create(ctx context.Context, file models.File) error {
	fileItem, err := attributevalue.MarshalMap(file)
	if err != nil {
		return err
	}

	err = retries.Retry(ctx, retries.DefaultAttempts, retries.DefaultBaseDelay, func() error {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item:      fileItem,
		})
		return err
	}, retries.IsRetriableDbError)
	return storeError(err, "create file")
}

func (s *DynamoFileStore) ListByOwner(ctx context.Context, ownerID string) ([]models.File, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(ownerIndexName),
		KeyConditionExpression: aws.String("owner_id = :o"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberS{
				Value: ownerID,
			},
		},
	})

	files := make([]models.File, 0)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeError(err, "list files")
		}

		var page []models.File
		if err = attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		files = append(files, page...)
	}

	return files, nil
}

func (s *DynamoFileStore) Delete(ctx context.Context, fileID string) error {
	err := retries.Retry(ctx, retries.DefaultAttempts, retries.DefaultBaseDelay, func() error {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:           aws.String(s.tableName),
			Key:                 fileKey(fileID),
			ConditionExpression: aws.String("attribute_exists(file_id)"),
		})
		return err
	}, retries.IsRetriableDbError)
	if isConditionalCheckFailed(err) {
		return apperror.ErrFileNotFound
	}
	return storeError(err, "delete file")
}
