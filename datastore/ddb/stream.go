/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitymapper/storagemodels"
)

// Scan streams every item of a collection, one page at a time.
func (s *DataStore) Scan(ctx context.Context, collection string, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult {
	options := storagemodels.ApplyStreamOptions(opts...)

	resultCh := make(chan storagemodels.StreamResult, options.BufferSize)
	go s.scanWorker(ctx, s.Table(collection), options, resultCh)
	return resultCh
}

func (s *DataStore) scanWorker(
	ctx context.Context,
	table string,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult,
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	var failures []error
	startTime := time.Now()

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: itemIndex,
			PagesProcessed: pageNumber,
			Errors:         failures,
			StartTime:      startTime,
		}
		if len(lastKey) > 0 {
			var key storagemodels.Key
			if err := attributevalue.UnmarshalMap(lastKey, &key); err == nil {
				progress.LastKey = key
			}
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	meta := func() storagemodels.StreamMeta {
		return storagemodels.StreamMeta{
			Index:      itemIndex,
			PageNumber: pageNumber,
			Timestamp:  time.Now(),
		}
	}

	input := &sdk.ScanInput{
		TableName: aws.String(table),
		Limit:     aws.Int32(options.PageSize),
	}

	for {
		if ctx.Err() != nil {
			return
		}

		out, err := s.scanWithRetry(ctx, input, options)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if options.ErrorHandler != nil && options.ErrorHandler(err) {
				failures = append(failures, err)
				continue
			}
			select {
			case resultCh <- storagemodels.StreamResult{Error: fmt.Errorf("scan failed: %w", err), Meta: meta()}:
			case <-ctx.Done():
			}
			return
		}

		pageNumber++
		for _, item := range out.Items {
			result := storagemodels.StreamResult{Meta: meta()}
			result.Record, result.Error = unmarshalRecord(item)
			itemIndex++

			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}
			if result.Error != nil {
				failures = append(failures, result.Error)
			}
		}

		reportProgress(out.LastEvaluatedKey)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	reportProgress(nil)
}

// scanWithRetry executes a scan, retrying throttling and server errors with
// linear backoff.
func (s *DataStore) scanWithRetry(ctx context.Context, input *sdk.ScanInput, options storagemodels.StreamOptions) (*sdk.ScanOutput, error) {
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := s.client.Scan(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}

		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			s.logger.Warn("dynamodb: retrying scan", "table", aws.ToString(input.TableName), "attempt", attempt+1, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("scan failed after %d retries: %w", options.MaxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}

	var retryable interface{ IsRetryable() bool }
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}
