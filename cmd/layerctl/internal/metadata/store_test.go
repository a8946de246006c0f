// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo implements DynamoAPI with function fields so each test wires
// only the calls it expects. An unexpected call panics.
type fakeDynamo struct {
	putFunc    func(ctx context.Context, in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	deleteFunc func(ctx context.Context, in *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	queryFunc  func(ctx context.Context, in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	scanFunc   func(ctx context.Context, in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putFunc == nil {
		panic("fakeDynamo: unexpected PutItem call")
	}
	return f.putFunc(ctx, in)
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.deleteFunc == nil {
		panic("fakeDynamo: unexpected DeleteItem call")
	}
	return f.deleteFunc(ctx, in)
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.queryFunc == nil {
		panic("fakeDynamo: unexpected Query call")
	}
	return f.queryFunc(ctx, in)
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.scanFunc == nil {
		panic("fakeDynamo: unexpected Scan call")
	}
	return f.scanFunc(ctx, in)
}

func sampleItem() Item {
	return Item{
		PK:                 "arn:aws:lambda:us-east-1:1:layer:opentelemetry-collector-amd64-0_119_0-prod:3",
		SK:                 "clickhouse",
		LayerARN:           "arn:aws:lambda:us-east-1:1:layer:opentelemetry-collector-amd64-0_119_0-prod:3",
		Region:             "us-east-1",
		BaseName:           "opentelemetry-collector",
		Architecture:       "amd64",
		Distribution:       "clickhouse",
		LayerVersion:       "3",
		CollectorVersion:   "v0.119.0",
		MD5Hash:            "d41d8cd98f00b204e9800998ecf8427e",
		PublishTimestamp:   "2025-06-01T12:00:00Z",
		Public:             true,
		CompatibleRuntimes: []string{"nodejs18.x", "nodejs20.x"},
	}
}

func TestPut(t *testing.T) {
	var captured *dynamodb.PutItemInput
	fake := &fakeDynamo{
		putFunc: func(_ context.Context, in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			captured = in
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewFromAPI(fake, "custom-collector-extension-layers", "sk-pk-index")

	require.NoError(t, s.Put(context.Background(), sampleItem()))

	require.NotNil(t, captured)
	assert.Equal(t, "custom-collector-extension-layers", aws.ToString(captured.TableName))

	pk, ok := captured.Item["pk"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, sampleItem().PK, pk.Value)

	sk, ok := captured.Item["sk"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "clickhouse", sk.Value)

	runtimes, ok := captured.Item["compatible_runtimes"].(*types.AttributeValueMemberSS)
	require.True(t, ok, "compatible_runtimes should marshal as a string set")
	assert.ElementsMatch(t, []string{"nodejs18.x", "nodejs20.x"}, runtimes.Value)
}

func TestPutStripsEmptyAttributes(t *testing.T) {
	var captured *dynamodb.PutItemInput
	fake := &fakeDynamo{
		putFunc: func(_ context.Context, in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			captured = in
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	item := Item{PK: "arn", SK: "default"}
	require.NoError(t, s.Put(context.Background(), item))

	require.NotNil(t, captured)
	for _, attr := range []string{"md5_hash", "region", "architecture", "compatible_runtimes"} {
		_, present := captured.Item[attr]
		assert.False(t, present, "empty attribute %s should be stripped", attr)
	}
	// The bool survives even when false.
	_, present := captured.Item["public"]
	assert.True(t, present)
}

func TestPutMissingKey(t *testing.T) {
	s := NewFromAPI(&fakeDynamo{}, "t", "i")

	err := s.Put(context.Background(), Item{PK: "arn"})
	require.ErrorIs(t, err, ErrMissingKey)

	err = s.Put(context.Background(), Item{SK: "default"})
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestPutAPIError(t *testing.T) {
	fake := &fakeDynamo{
		putFunc: func(_ context.Context, _ *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			return nil, errors.New("throughput exceeded")
		},
	}
	s := NewFromAPI(fake, "t", "i")

	err := s.Put(context.Background(), sampleItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throughput exceeded")
}

func TestGet(t *testing.T) {
	row, err := attributevalue.MarshalMap(sampleItem())
	require.NoError(t, err)

	var captured *dynamodb.QueryInput
	fake := &fakeDynamo{
		queryFunc: func(_ context.Context, in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			captured = in
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{row}}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	item, err := s.Get(context.Background(), sampleItem().PK)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", item.Distribution)
	assert.Equal(t, "v0.119.0", item.CollectorVersion)
	assert.True(t, item.Public)

	require.NotNil(t, captured)
	assert.Equal(t, "pk = :pk", aws.ToString(captured.KeyConditionExpression))
	assert.Nil(t, captured.IndexName, "Get reads the base table, not the GSI")
}

func TestGetSortsRuntimes(t *testing.T) {
	fake := &fakeDynamo{
		queryFunc: func(_ context.Context, _ *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{{
				"pk":                  &types.AttributeValueMemberS{Value: "arn"},
				"sk":                  &types.AttributeValueMemberS{Value: "default"},
				"compatible_runtimes": &types.AttributeValueMemberSS{Value: []string{"python3.9", "java17", "nodejs18.x"}},
			}}}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	item, err := s.Get(context.Background(), "arn")
	require.NoError(t, err)
	assert.Equal(t, []string{"java17", "nodejs18.x", "python3.9"}, item.CompatibleRuntimes)
}

func TestGetNotFound(t *testing.T) {
	fake := &fakeDynamo{
		queryFunc: func(_ context.Context, _ *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	_, err := s.Get(context.Background(), "arn:missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	var deletedKeys []string
	fake := &fakeDynamo{
		queryFunc: func(_ context.Context, _ *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
				{
					"pk": &types.AttributeValueMemberS{Value: "arn"},
					"sk": &types.AttributeValueMemberS{Value: "default"},
				},
				{
					"pk": &types.AttributeValueMemberS{Value: "arn"},
					"sk": &types.AttributeValueMemberS{Value: "clickhouse"},
				},
			}}, nil
		},
		deleteFunc: func(_ context.Context, in *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
			sk := in.Key["sk"].(*types.AttributeValueMemberS)
			deletedKeys = append(deletedKeys, sk.Value)
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	n, err := s.Delete(context.Background(), "arn")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"default", "clickhouse"}, deletedKeys)
}

func TestDeleteNothing(t *testing.T) {
	fake := &fakeDynamo{
		queryFunc: func(_ context.Context, _ *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	n, err := s.Delete(context.Background(), "arn:missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueryByDistribution(t *testing.T) {
	row1, err := attributevalue.MarshalMap(sampleItem())
	require.NoError(t, err)
	second := sampleItem()
	second.PK = "arn:aws:lambda:eu-west-1:1:layer:opentelemetry-collector-arm64-0_119_0-prod:1"
	second.Region = "eu-west-1"
	row2, err := attributevalue.MarshalMap(second)
	require.NoError(t, err)

	calls := 0
	fake := &fakeDynamo{
		queryFunc: func(_ context.Context, in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			calls++
			assert.Equal(t, "sk-pk-index", aws.ToString(in.IndexName))
			assert.Equal(t, "sk = :dist", aws.ToString(in.KeyConditionExpression))
			if calls == 1 {
				assert.Nil(t, in.ExclusiveStartKey)
				return &dynamodb.QueryOutput{
					Items:            []map[string]types.AttributeValue{row1},
					LastEvaluatedKey: map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: sampleItem().PK}},
				}, nil
			}
			assert.NotNil(t, in.ExclusiveStartKey)
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{row2}}, nil
		},
	}
	s := NewFromAPI(fake, "t", "sk-pk-index")

	items, err := s.QueryByDistribution(context.Background(), "clickhouse")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "us-east-1", items[0].Region)
	assert.Equal(t, "eu-west-1", items[1].Region)
}

func TestScanAll(t *testing.T) {
	row, err := attributevalue.MarshalMap(sampleItem())
	require.NoError(t, err)

	fake := &fakeDynamo{
		scanFunc: func(_ context.Context, in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
			assert.Equal(t, "t", aws.ToString(in.TableName))
			return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{row, row}}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	items, err := s.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRepairWritesMissingRecord(t *testing.T) {
	putCalled := false
	fake := &fakeDynamo{
		queryFunc: func(_ context.Context, _ *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{}, nil
		},
		putFunc: func(_ context.Context, _ *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			putCalled = true
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	repaired, err := s.Repair(context.Background(), sampleItem())
	require.NoError(t, err)
	assert.True(t, repaired)
	assert.True(t, putCalled)
}

func TestRepairLeavesExistingRecord(t *testing.T) {
	row, err := attributevalue.MarshalMap(sampleItem())
	require.NoError(t, err)

	fake := &fakeDynamo{
		queryFunc: func(_ context.Context, _ *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{row}}, nil
		},
	}
	s := NewFromAPI(fake, "t", "i")

	repaired, err := s.Repair(context.Background(), sampleItem())
	require.NoError(t, err)
	assert.False(t, repaired)
}

func TestTimestamp(t *testing.T) {
	ts := Timestamp()
	parsed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())
}
