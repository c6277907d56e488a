/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package ddbcache stores cache entries in a DynamoDB table with TTL enabled.
//
// Items have the shape {pk: S, value: B, ttl: N}. DynamoDB reaps expired
// items lazily, so an item whose ttl is in the past is reported as a miss.
package ddbcache

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrKey   = "pk"
	attrValue = "value"
	attrTTL   = "ttl"
)

// API is the part of the DynamoDB client used by Store.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
}

// Store is a cache.Store backed by one DynamoDB table.
type Store struct {
	client API
	table  string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a Store writing to table.
func New(client API, table string, opts ...Option) *Store {
	s := &Store{
		client: client,
		table:  table,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: key},
	}
}

func (s *Store) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil || isExpired(out.Item, s.now()) {
		return nil, false, nil
	}

	value, ok := out.Item[attrValue].(*types.AttributeValueMemberB)
	if !ok {
		return nil, false, fmt.Errorf("cache item %q has no binary value", key)
	}
	return value.Value, true, nil
}

// Store writes value. A positive ttl is rounded up to whole seconds.
func (s *Store) Store(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := s.key(key)
	item[attrValue] = &types.AttributeValueMemberB{Value: value}
	if ttl > 0 {
		expires := s.now().Unix() + int64(math.Ceil(ttl.Seconds()))
		item[attrTTL] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expires, 10)}
	}

	_, err := s.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(key),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem failed: %w", err)
	}
	return nil
}

// isExpired reports whether item carries a ttl at or before now.
func isExpired(item map[string]types.AttributeValue, now time.Time) bool {
	ttlNum, ok := item[attrTTL].(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	ttl, err := strconv.ParseInt(ttlNum.Value, 10, 64)
	if err != nil {
		return false
	}
	return ttl <= now.Unix()
}
