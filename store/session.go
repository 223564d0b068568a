package store

import (
	"context"
	"errors"
	"slices"
	"strconv"
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

type SessionStore interface {
	CreateSession(ctx context.Context, uploadSession models.UploadSession) error
	GetSession(ctx context.Context, uploadID string) (*models.UploadSession, error)
	// UpdateSession writes s only if the stored version still equals
	// s.Version, then advances s.Version. A lost race yields
	// apperror.ErrVersionConflict.
	UpdateSession(ctx context.Context, s *models.UploadSession) error
	// AddChunk records chunk as received in a single atomic step and
	// returns the resulting session. added is false when the chunk was
	// already recorded. Concurrent calls for distinct chunks never conflict.
	// Callers validate chunk against TotalChunks first.
	AddChunk(ctx context.Context, uploadID string, chunk uint32) (session *models.UploadSession, added bool, err error)
	DeleteSession(ctx context.Context, uploadID string) error
	ListExpired(ctx context.Context, before time.Time, limit int) ([]models.UploadSession, error)

	health.ReadinessCheck
}

// DynamoDBAPI is the subset of *dynamodb.Client the stores use.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type DynamoSessionStore struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoSessionStore(client DynamoDBAPI, tableName string) *DynamoSessionStore {
	return &DynamoSessionStore{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoSessionStore) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	return retries.Retry(
		ctx,
		retries.HealthAttempts,
		retries.HealthBaseDelay,
		func() error {
			_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
				TableName: aws.String(s.tableName),
			})

			return err
		},
		retries.IsRetriableDbError,
	)
}

func (s *DynamoSessionStore) Name() string {
	return "SessionStore[dynamodb:" + s.tableName + "]"
}

func (s *DynamoSessionStore) CreateSession(ctx context.Context, uploadSession models.UploadSession) error {
	if uploadSession.Version == 0 {
		uploadSession.Version = 1
	}

	uploadSessionItem, err := attributevalue.MarshalMap(uploadSession)
	if err != nil {
		return err
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName:           aws.String(s.tableName),
				Item:                uploadSessionItem,
				ConditionExpression: aws.String("attribute_not_exists(upload_id)"),
			})
			return err
		},
		retries.IsRetriableDbError,
	)
	if isConditionalCheckFailed(err) {
		return apperror.ErrSessionExists
	}
	return storeError(err, "create session")
}

func (s *DynamoSessionStore) GetSession(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	var session models.UploadSession

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName:      aws.String(s.tableName),
				Key:            sessionKey(uploadID),
				ConsistentRead: aws.Bool(true),
			})
			if err != nil {
				return err
			}

			if out.Item == nil {
				return apperror.ErrSessionNotFound
			}

			return unmarshalSession(out.Item, &session)
		},
		retries.IsRetriableDbError,
	)

	if err != nil {
		return nil, storeError(err, "get session")
	}

	return &session, nil
}

func (s *DynamoSessionStore) UpdateSession(ctx context.Context, session *models.UploadSession) error {
	expected := session.Version
	next := session.Clone()
	next.Version = expected + 1

	item, err := attributevalue.MarshalMap(next)
	if err != nil {
		return err
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName:           aws.String(s.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_exists(upload_id) AND #ver = :expected"),
				ExpressionAttributeNames: map[string]string{
					"#ver": "version",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
				},
				ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if ccf.Item == nil {
			return apperror.ErrSessionNotFound
		}
		return apperror.ErrVersionConflict
	}
	if err != nil {
		return storeError(err, "update session")
	}

	session.Version = next.Version
	return nil
}

// AddChunk adds chunk to the uploaded_chunks number set with an ADD update,
// so writers of distinct chunks never race each other. The version still
// advances so a concurrent UpdateSession cannot overwrite the new chunk.
func (s *DynamoSessionStore) AddChunk(ctx context.Context, uploadID string, chunk uint32) (*models.UploadSession, bool, error) {
	n := strconv.FormatUint(uint64(chunk), 10)

	var out *dynamodb.UpdateItemOutput
	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			var err error
			out, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:           aws.String(s.tableName),
				Key:                 sessionKey(uploadID),
				UpdateExpression:    aws.String("ADD uploaded_chunks :chunks, #ver :one"),
				ConditionExpression: aws.String("attribute_exists(upload_id) AND NOT contains(uploaded_chunks, :chunk)"),
				ExpressionAttributeNames: map[string]string{
					"#ver": "version",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":chunks": &types.AttributeValueMemberNS{Value: []string{n}},
					":chunk":  &types.AttributeValueMemberN{Value: n},
					":one":    &types.AttributeValueMemberN{Value: "1"},
				},
				ReturnValues:                        types.ReturnValueAllNew,
				ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if ccf.Item == nil {
			return nil, false, apperror.ErrSessionNotFound
		}
		var session models.UploadSession
		if err := unmarshalSession(ccf.Item, &session); err != nil {
			return nil, false, err
		}
		return &session, false, nil
	}
	if err != nil {
		return nil, false, storeError(err, "add chunk")
	}

	var session models.UploadSession
	if err := unmarshalSession(out.Attributes, &session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (s *DynamoSessionStore) DeleteSession(ctx context.Context, uploadID string) error {
	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName:           aws.String(s.tableName),
				Key:                 sessionKey(uploadID),
				ConditionExpression: aws.String("attribute_exists(upload_id)"),
			})
			return err
		},
		retries.IsRetriableDbError,
	)
	if isConditionalCheckFailed(err) {
		return apperror.ErrSessionNotFound
	}
	return storeError(err, "delete session")
}

func (s *DynamoSessionStore) ListExpired(ctx context.Context, before time.Time, limit int) ([]models.UploadSession, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("expires_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(before.Unix(), 10)},
		},
	})

	var sessions []models.UploadSession
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeError(err, "scan expired sessions")
		}

		for _, item := range page.Items {
			var session models.UploadSession
			if err := unmarshalSession(item, &session); err != nil {
				return nil, err
			}
			sessions = append(sessions, session)
		}

		if limit > 0 && len(sessions) >= limit {
			return sessions[:limit], nil
		}
	}

	return sessions, nil
}

// unmarshalSession decodes an item and restores chunk order, which a
// DynamoDB number set does not keep.
func unmarshalSession(item map[string]types.AttributeValue, session *models.UploadSession) error {
	if err := attributevalue.UnmarshalMap(item, session); err != nil {
		return err
	}
	slices.Sort(session.UploadedChunks)
	return nil
}

func sessionKey(uploadID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"upload_id": &types.AttributeValueMemberS{
			Value: uploadID,
		},
	}
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// storeError keeps classified errors as they are and marks everything else
// as a store outage.
func storeError(err error, op string) error {
	if err == nil {
		return nil
	}
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	return apperror.Wrap(apperror.KindStoreUnavailable, err, op)
}
