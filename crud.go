package astradb

import (
	"context"
	"errors"

	"github.com/datastax/astra-db-go/dacmdx"
)

type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedID    interface{}
}

type UpdateOneOptions struct {
	Upsert  bool
	Sort    Sort
	Timeout *TimeoutOptions
}

func (c *Collection) UpdateOne(ctx context.Context, filter Filter, update Update, opts *UpdateOneOptions) (*UpdateResult, error) {
	if opts == nil {
		opts = &UpdateOneOptions{}
	}

	payload := map[string]interface{}{
		"filter": orEmptyFilter(filter),
		"update": update,
	}
	if opts.Sort != nil {
		payload["sort"] = opts.Sort
	}
	if opts.Upsert {
		payload["options"] = map[string]interface{}{"upsert": true}
	}

	tm := SingleTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)
	resp, err := c.runner.run(ctx, map[string]interface{}{"updateOne": payload}, tm)
	if err != nil {
		return nil, err
	}

	return updateResultFromStatus(resp.Status), nil
}

type ReplaceOneOptions struct {
	Upsert  bool
	Sort    Sort
	Timeout *TimeoutOptions
}

func (c *Collection) ReplaceOne(ctx context.Context, filter Filter, replacement Document, opts *ReplaceOneOptions) (*UpdateResult, error) {
	if opts == nil {
		opts = &ReplaceOneOptions{}
	}

	payload := map[string]interface{}{
		"filter":      orEmptyFilter(filter),
		"replacement": replacement,
	}
	if opts.Sort != nil {
		payload["sort"] = opts.Sort
	}
	if opts.Upsert {
		payload["options"] = map[string]interface{}{"upsert": true}
	}

	tm := SingleTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)
	resp, err := c.runner.run(ctx, map[string]interface{}{"findOneAndReplace": payload}, tm)
	if err != nil {
		return nil, err
	}

	return updateResultFromStatus(resp.Status), nil
}

type UpdateManyOptions struct {
	Upsert  bool
	Timeout *TimeoutOptions
}

// UpdateMany applies an update to every matching document. The server
// processes a bounded page of matches per call; the loop follows
// nextPageState under one shared operation deadline.
func (c *Collection) UpdateMany(ctx context.Context, filter Filter, update Update, opts *UpdateManyOptions) (*UpdateManyResult, error) {
	if opts == nil {
		opts = &UpdateManyOptions{}
	}

	tm := MultipartTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)

	result := UpdateManyResult{}
	pageState := ""
	for {
		options := map[string]interface{}{}
		if opts.Upsert {
			options["upsert"] = true
		}
		if pageState != "" {
			options["pageState"] = pageState
		}

		command := map[string]interface{}{
			"updateMany": map[string]interface{}{
				"filter":  orEmptyFilter(filter),
				"update":  update,
				"options": options,
			},
		}

		resp, err := c.runner.run(ctx, command, tm)
		if err != nil {
			return nil, UpdateManyError{
				Cause:            err,
				PartialResult:    result,
				ErrorDescriptors: describeFailure(err, command),
			}
		}

		result.MatchedCount += statusInt(resp.Status, "matchedCount")
		result.ModifiedCount += statusInt(resp.Status, "modifiedCount")
		if upserted, ok := resp.Status["upsertedId"]; ok {
			result.UpsertedID = upserted
		}

		next, ok := statusString(resp.Status, "nextPageState")
		if !ok || next == "" {
			break
		}
		pageState = next
	}

	return &result, nil
}

type DeleteResult struct {
	DeletedCount int64
}

type DeleteOneOptions struct {
	Sort    Sort
	Timeout *TimeoutOptions
}

func (c *Collection) DeleteOne(ctx context.Context, filter Filter, opts *DeleteOneOptions) (*DeleteResult, error) {
	if opts == nil {
		opts = &DeleteOneOptions{}
	}

	payload := map[string]interface{}{
		"filter": orEmptyFilter(filter),
	}
	if opts.Sort != nil {
		payload["sort"] = opts.Sort
	}

	tm := SingleTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)
	resp, err := c.runner.run(ctx, map[string]interface{}{"deleteOne": payload}, tm)
	if err != nil {
		return nil, err
	}

	return &DeleteResult{DeletedCount: statusInt(resp.Status, "deletedCount")}, nil
}

type DeleteManyOptions struct {
	Timeout *TimeoutOptions
}

// DeleteMany deletes every matching document. The server deletes a bounded
// batch per call and reports moreData while matches remain; the loop shares
// one operation deadline across all calls.
func (c *Collection) DeleteMany(ctx context.Context, filter Filter, opts *DeleteManyOptions) (*DeleteManyResult, error) {
	if opts == nil {
		opts = &DeleteManyOptions{}
	}

	tm := MultipartTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)

	result := DeleteManyResult{}
	for {
		command := map[string]interface{}{
			"deleteMany": map[string]interface{}{
				"filter": orEmptyFilter(filter),
			},
		}

		resp, err := c.runner.run(ctx, command, tm)
		if err != nil {
			return nil, DeleteManyError{
				Cause:            err,
				PartialResult:    result,
				ErrorDescriptors: describeFailure(err, command),
			}
		}

		result.DeletedCount += statusInt(resp.Status, "deletedCount")

		if !statusBool(resp.Status, "moreData") {
			break
		}
	}

	return &result, nil
}

type CountDocumentsOptions struct {
	Timeout *TimeoutOptions
}

// CountDocuments counts matching documents up to upperBound. The server
// enumerates up to its own fixed ceiling and sets moreData beyond it; either
// way the caller gets a TooManyDocumentsError rather than a truncated count.
func (c *Collection) CountDocuments(ctx context.Context, filter Filter, upperBound int, opts *CountDocumentsOptions) (int64, error) {
	if opts == nil {
		opts = &CountDocumentsOptions{}
	}
	if upperBound <= 0 {
		return 0, errors.New("upperBound must be positive")
	}

	tm := SingleTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)
	resp, err := c.runner.run(ctx, map[string]interface{}{
		"countDocuments": map[string]interface{}{
			"filter": orEmptyFilter(filter),
		},
	}, tm)
	if err != nil {
		return 0, err
	}

	count := statusInt(resp.Status, "count")
	if statusBool(resp.Status, "moreData") || count > int64(upperBound) {
		return 0, TooManyDocumentsError{UpperBound: upperBound}
	}

	return count, nil
}

type EstimatedDocumentCountOptions struct {
	Timeout *TimeoutOptions
}

func (c *Collection) EstimatedDocumentCount(ctx context.Context, opts *EstimatedDocumentCountOptions) (int64, error) {
	if opts == nil {
		opts = &EstimatedDocumentCountOptions{}
	}

	tm := SingleTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)
	resp, err := c.runner.run(ctx, map[string]interface{}{
		"estimatedDocumentCount": map[string]interface{}{},
	}, tm)
	if err != nil {
		return 0, err
	}

	return statusInt(resp.Status, "count"), nil
}

func updateResultFromStatus(status map[string]interface{}) *UpdateResult {
	result := &UpdateResult{
		MatchedCount:  statusInt(status, "matchedCount"),
		ModifiedCount: statusInt(status, "modifiedCount"),
	}
	if upserted, ok := status["upsertedId"]; ok {
		result.UpsertedID = upserted
	}
	return result
}

// describeFailure bundles one failed HTTP call's parsed errors with the
// command that produced them, for aggregation into partial-failure errors.
func describeFailure(err error, command map[string]interface{}) []dacmdx.DetailedErrorDescriptor {
	desc := dacmdx.DetailedErrorDescriptor{Command: command}

	var respErr dacmdx.ResponseError
	if errors.As(err, &respErr) {
		desc.Errors = respErr.Descriptors
		desc.RawResponse = respErr.RawResponse
	}

	return []dacmdx.DetailedErrorDescriptor{desc}
}
