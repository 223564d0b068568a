package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo answers the calls a test sets up; any other call panics on the
// nil embedded interface.
type fakeDynamo struct {
	DynamoDBAPI

	getItem    func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putItem    func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	updateItem func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getItem(in)
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return f.putItem(in)
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return f.updateItem(in)
}

func sessionItem(t *testing.T, chunks ...string) map[string]types.AttributeValue {
	t.Helper()
	sess := newSession("u1", 4, time.Now().Add(time.Hour))
	sess.Version = 3
	item, err := attributevalue.MarshalMap(sess)
	require.NoError(t, err)
	if len(chunks) > 0 {
		item["uploaded_chunks"] = &types.AttributeValueMemberNS{Value: chunks}
	}
	return item
}

func TestDynamoUpdateSessionConditionFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		item map[string]types.AttributeValue
		want error
	}{
		{"item gone", nil, apperror.ErrSessionNotFound},
		{"version moved", sessionItem(t, "1"), apperror.ErrVersionConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDynamo{
				putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
					return nil, &types.ConditionalCheckFailedException{Message: aws.String("failed"), Item: tt.item}
				},
			}
			s := NewDynamoSessionStore(fake, "sessions")

			sess := newSession("u1", 4, time.Now())
			sess.Version = 2
			err := s.UpdateSession(ctx, &sess)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int64(2), sess.Version)
		})
	}
}

func TestDynamoUpdateSessionConditionsOnVersion(t *testing.T) {
	var got *dynamodb.PutItemInput
	fake := &fakeDynamo{
		putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			got = in
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewDynamoSessionStore(fake, "sessions")

	sess := newSession("u1", 4, time.Now())
	sess.Version = 2
	sess.AddChunk(3)
	sess.AddChunk(1)
	require.NoError(t, s.UpdateSession(context.Background(), &sess))
	assert.Equal(t, int64(3), sess.Version)

	require.NotNil(t, got)
	assert.Equal(t, "attribute_exists(upload_id) AND #ver = :expected", aws.ToString(got.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "2"}, got.ExpressionAttributeValues[":expected"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, got.Item["version"])
	assert.ElementsMatch(t, []string{"1", "3"}, got.Item["uploaded_chunks"].(*types.AttributeValueMemberNS).Value)
}

func TestDynamoUpdateSessionOutage(t *testing.T) {
	fake := &fakeDynamo{
		putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			return nil, errors.New("connection reset")
		},
	}
	s := NewDynamoSessionStore(fake, "sessions")

	sess := newSession("u1", 4, time.Now())
	err := s.UpdateSession(context.Background(), &sess)
	require.Error(t, err)
	assert.Equal(t, apperror.KindStoreUnavailable, apperror.KindOf(err))
}

func TestDynamoAddChunk(t *testing.T) {
	ctx := context.Background()

	t.Run("added", func(t *testing.T) {
		var got *dynamodb.UpdateItemInput
		fake := &fakeDynamo{
			updateItem: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				got = in
				return &dynamodb.UpdateItemOutput{Attributes: sessionItem(t, "4", "2", "3")}, nil
			},
		}
		s := NewDynamoSessionStore(fake, "sessions")

		sess, added, err := s.AddChunk(ctx, "u1", 3)
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, []uint32{2, 3, 4}, sess.UploadedChunks)

		require.NotNil(t, got)
		assert.Equal(t, "ADD uploaded_chunks :chunks, #ver :one", aws.ToString(got.UpdateExpression))
		assert.Equal(t, &types.AttributeValueMemberNS{Value: []string{"3"}}, got.ExpressionAttributeValues[":chunks"])
		assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, got.ExpressionAttributeValues[":chunk"])
		assert.Equal(t, types.ReturnValueAllNew, got.ReturnValues)
	})

	t.Run("already present", func(t *testing.T) {
		fake := &fakeDynamo{
			updateItem: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{Item: sessionItem(t, "3", "1")}
			},
		}
		s := NewDynamoSessionStore(fake, "sessions")

		sess, added, err := s.AddChunk(ctx, "u1", 3)
		require.NoError(t, err)
		assert.False(t, added)
		assert.Equal(t, []uint32{1, 3}, sess.UploadedChunks)
		assert.Equal(t, int64(3), sess.Version)
	})

	t.Run("session gone", func(t *testing.T) {
		fake := &fakeDynamo{
			updateItem: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{}
			},
		}
		s := NewDynamoSessionStore(fake, "sessions")

		_, _, err := s.AddChunk(ctx, "u1", 3)
		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestDynamoGetSessionSortsChunks(t *testing.T) {
	fake := &fakeDynamo{
		getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: sessionItem(t, "9", "1", "5")}, nil
		},
	}
	s := NewDynamoSessionStore(fake, "sessions")

	sess, err := s.GetSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 5, 9}, sess.UploadedChunks)
}
