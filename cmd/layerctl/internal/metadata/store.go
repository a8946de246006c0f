// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package metadata records published layer versions in DynamoDB.

The table is keyed (pk, sk) = (layer version ARN, distribution). A global
secondary index inverts the pair so release notes and reports can pull every
row of one distribution with a single query. Reads off the index are
eventually consistent; callers filter by collector version or ARN glob on
their side after the query.
*/
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the slice of the DynamoDB API the store uses.
// *dynamodb.Client satisfies it; tests substitute a recorded fake.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store reads and writes layer metadata in one table.
type Store struct {
	api   DynamoAPI
	table string
	index string
}

// New builds a Store on top of a loaded AWS config. The metadata table lives
// in a single region regardless of where the layers themselves are published.
func New(cfg aws.Config, region, table, index string) *Store {
	api := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.Region = region
	})
	return NewFromAPI(api, table, index)
}

// NewFromAPI builds a Store around an existing API implementation.
func NewFromAPI(api DynamoAPI, table, index string) *Store {
	return &Store{api: api, table: table, index: index}
}

// Table returns the table name the store writes to.
func (s *Store) Table() string {
	return s.table
}

// Put writes one item. Both keys must be set; empty optional attributes are
// dropped by the marshaler rather than written as empty strings.
func (s *Store) Put(ctx context.Context, item Item) error {
	if item.PK == "" || item.SK == "" {
		return fmt.Errorf("%w: pk=%q sk=%q", ErrMissingKey, item.PK, item.SK)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %s: %w", item.PK, err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("writing metadata for %s: %w", item.PK, err)
	}
	return nil
}

// Get returns the record stored under a layer version ARN. The table key is
// composite, so this queries the base table by pk and returns the first row;
// a given ARN only ever belongs to one distribution. Returns ErrNotFound
// when no row exists.
func (s *Store) Get(ctx context.Context, pk string) (*Item, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("querying metadata for %s: %w", pk, err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pk)
	}

	var item Item
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata for %s: %w", pk, err)
	}
	item.normalize()
	return &item, nil
}

// Delete removes every row stored under a layer version ARN and returns how
// many were deleted. Deleting an absent pk is not an error.
func (s *Store) Delete(ctx context.Context, pk string) (int, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("querying metadata for %s: %w", pk, err)
	}

	deleted := 0
	for _, row := range out.Items {
		sk, ok := row["sk"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key: map[string]types.AttributeValue{
				"pk": &types.AttributeValueMemberS{Value: pk},
				"sk": &types.AttributeValueMemberS{Value: sk.Value},
			},
		})
		if err != nil {
			return deleted, fmt.Errorf("deleting metadata for %s: %w", pk, err)
		}
		deleted++
	}
	return deleted, nil
}

// QueryByDistribution returns every item of one distribution via the GSI,
// following LastEvaluatedKey across pages.
func (s *Store) QueryByDistribution(ctx context.Context, distribution string) ([]Item, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.index),
		KeyConditionExpression: aws.String("sk = :dist"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":dist": &types.AttributeValueMemberS{Value: distribution},
		},
	}

	var items []Item
	p := dynamodb.NewQueryPaginator(s.api, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying distribution %s: %w", distribution, err)
		}
		var batch []Item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshaling distribution %s: %w", distribution, err)
		}
		items = append(items, batch...)
	}

	for i := range items {
		items[i].normalize()
	}
	return items, nil
}

// ScanAll returns every item in the table, following pagination. Reporting
// walks the whole table, so this is a scan on purpose.
func (s *Store) ScanAll(ctx context.Context) ([]Item, error) {
	var items []Item
	p := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", s.table, err)
		}
		var batch []Item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshaling scan of %s: %w", s.table, err)
		}
		items = append(items, batch...)
	}

	for i := range items {
		items[i].normalize()
	}
	return items, nil
}

// Repair writes the item only when no record exists under its pk yet. A
// publish skipped because the layer already existed in Lambda may still be
// missing its row after a partial earlier run; this self-heals that case.
// Returns true when a record was written.
func (s *Store) Repair(ctx context.Context, item Item) (bool, error) {
	_, err := s.Get(ctx, item.PK)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := s.Put(ctx, item); err != nil {
		return false, err
	}
	return true, nil
}
