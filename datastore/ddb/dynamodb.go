/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// DataStore implements datastore.DataStore and datastore.Scanner on top of
// DynamoDB tables.
type DataStore struct {
	client API
	prefix string
	logger *slog.Logger
}

// Option configures a DataStore.
type Option func(*DataStore)

// WithTablePrefix prepends prefix to every collection name.
func WithTablePrefix(prefix string) Option {
	return func(s *DataStore) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger used for retries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *DataStore) {
		s.logger = logger
	}
}

// New constructs a DataStore using client.
func New(client API, opts ...Option) *DataStore {
	s := &DataStore{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the table name backing collection.
func (s *DataStore) Table(collection string) string {
	return s.prefix + collection
}

// Get retrieves a single item with a strongly consistent read. It returns
// nil, nil when the item does not exist.
func (s *DataStore) Get(ctx context.Context, collection string, key storagemodels.Key) (storagemodels.Record, error) {
	keyMap, err := marshalKey(key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(s.Table(collection)),
		Key:            keyMap,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return unmarshalRecord(out.Item)
}

// Insert puts record unless an item with the same key exists. Every key
// field must be set: DynamoDB cannot generate key values.
func (s *DataStore) Insert(ctx context.Context, collection string, record storagemodels.Record, primaryKey []string) error {
	if len(primaryKey) == 0 {
		return errs.NewValidationError("key", "no primary key fields")
	}
	key, ok := record.Pick(primaryKey)
	if !ok {
		return errs.NewValidationError("key", "dynamodb cannot generate key values")
	}

	item, err := attributevalue.MarshalMap(map[string]any(record.WithoutNulls()))
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	condition, names := keyCondition("attribute_not_exists", primaryKey)
	_, err = s.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                aws.String(s.Table(collection)),
		Item:                     item,
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: names,
	})
	if err != nil {
		if isConditionFailed(err) {
			return errs.NewAlreadyExistsError(collection, key.String())
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// LastID is not supported by DynamoDB.
func (s *DataStore) LastID(ctx context.Context, collection, column string) (any, error) {
	return nil, fmt.Errorf("dynamodb does not generate values for %s.%s: %w", collection, column, errors.ErrUnsupported)
}

// Update applies changes to an existing item. Nil values remove the
// attribute. Key fields present in changes are ignored.
func (s *DataStore) Update(ctx context.Context, collection string, key storagemodels.Key, changes storagemodels.Record) error {
	keyMap, err := marshalKey(key)
	if err != nil {
		return err
	}

	expr, err := buildUpdateExpression(key.Names(), changes)
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}
	if expr.update == "" {
		return nil
	}

	_, err = s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 aws.String(s.Table(collection)),
		Key:                       keyMap,
		UpdateExpression:          aws.String(expr.update),
		ConditionExpression:       aws.String(expr.condition),
		ExpressionAttributeNames:  expr.names,
		ExpressionAttributeValues: expr.values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return errs.NewNotFoundError(collection, key.String())
		}
		return fmt.Errorf("UpdateItem failed: %w", err)
	}
	return nil
}

// Delete removes an existing item.
func (s *DataStore) Delete(ctx context.Context, collection string, key storagemodels.Key) error {
	keyMap, err := marshalKey(key)
	if err != nil {
		return err
	}

	condition, names := keyCondition("attribute_exists", key.Names())
	_, err = s.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                aws.String(s.Table(collection)),
		Key:                      keyMap,
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: names,
	})
	if err != nil {
		if isConditionFailed(err) {
			return errs.NewNotFoundError(collection, key.String())
		}
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}

func marshalKey(key storagemodels.Key) (map[string]types.AttributeValue, error) {
	if len(key) == 0 {
		return nil, errs.NewValidationError("key", "empty key")
	}
	for name, v := range key {
		if v == nil {
			return nil, errs.NewValidationError(name, "nil key value")
		}
	}
	av, err := attributevalue.MarshalMap(map[string]any(key))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}
	return av, nil
}

// unmarshalRecord decodes numbers as json.Number so integers beyond 2^53
// survive the trip; the value codecs convert them on restore.
func unmarshalRecord(item map[string]types.AttributeValue) (storagemodels.Record, error) {
	var record map[string]any
	err := attributevalue.UnmarshalMapWithOptions(item, &record, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	for k, v := range record {
		record[k] = jsonNumbers(v)
	}
	return storagemodels.Record(record), nil
}

func jsonNumbers(v any) any {
	switch v := v.(type) {
	case attributevalue.Number:
		return json.Number(v)
	case []attributevalue.Number:
		out := make([]json.Number, len(v))
		for i, n := range v {
			out[i] = json.Number(n)
		}
		return out
	case map[string]any:
		for k, e := range v {
			v[k] = jsonNumbers(e)
		}
	case []any:
		for i, e := range v {
			v[i] = jsonNumbers(e)
		}
	}
	return v
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}
