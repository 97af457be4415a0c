package astradb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateOneUpsert(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"matchedCount":0,"modifiedCount":0,"upsertedId":"doc-9"}}`),
	)
	coll := newTestCollection(rt)

	result, err := coll.UpdateOne(context.Background(),
		Filter{"_id": "doc-9"},
		Update{"$set": map[string]interface{}{"name": "nine"}},
		&UpdateOneOptions{Upsert: true})
	require.NoError(t, err)

	assert.Zero(t, result.MatchedCount)
	assert.Equal(t, "doc-9", result.UpsertedID)

	updateOne := commandSection(t, rt.ReceivedBodies[0], "updateOne")
	options, _ := updateOne["options"].(map[string]interface{})
	require.NotNil(t, options)
	assert.Equal(t, true, options["upsert"])
}

func TestReplaceOneUsesFindOneAndReplace(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"matchedCount":1,"modifiedCount":1}}`),
	)
	coll := newTestCollection(rt)

	result, err := coll.ReplaceOne(context.Background(),
		Filter{"_id": "doc-1"},
		Document{"name": "replaced"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.ModifiedCount)

	replace := commandSection(t, rt.ReceivedBodies[0], "findOneAndReplace")
	replacement, _ := replace["replacement"].(map[string]interface{})
	assert.Equal(t, "replaced", replacement["name"])
}

func TestUpdateManyFollowsPagination(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"matchedCount":10,"modifiedCount":10,"nextPageState":"page-2"}}`),
		makeJsonResponse(200, `{"status":{"matchedCount":3,"modifiedCount":3}}`),
	)
	coll := newTestCollection(rt)

	result, err := coll.UpdateMany(context.Background(),
		Filter{"kind": "test"},
		Update{"$set": map[string]interface{}{"flag": true}}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(13), result.MatchedCount)
	assert.Equal(t, int64(13), result.ModifiedCount)
	require.Len(t, rt.ReceivedRequests, 2)

	second := commandSection(t, rt.ReceivedBodies[1], "updateMany")
	options, _ := second["options"].(map[string]interface{})
	require.NotNil(t, options)
	assert.Equal(t, "page-2", options["pageState"])
}

func TestUpdateManyPartialFailure(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"matchedCount":10,"modifiedCount":10,"nextPageState":"page-2"}}`),
		makeJsonResponse(200, `{"errors":[{"errorCode":"SERVER_ERROR","message":"boom"}]}`),
	)
	coll := newTestCollection(rt)

	_, err := coll.UpdateMany(context.Background(), nil,
		Update{"$set": map[string]interface{}{"flag": true}}, nil)
	require.Error(t, err)

	var umErr UpdateManyError
	require.ErrorAs(t, err, &umErr)
	assert.Equal(t, int64(10), umErr.PartialResult.ModifiedCount)
	require.Len(t, umErr.ErrorDescriptors, 1)
	require.Len(t, umErr.ErrorDescriptors[0].Errors, 1)
	assert.Equal(t, "SERVER_ERROR", umErr.ErrorDescriptors[0].Errors[0].ErrorCode)
}

func TestDeleteOne(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"deletedCount":1}}`),
	)
	coll := newTestCollection(rt)

	result, err := coll.DeleteOne(context.Background(), Filter{"_id": "doc-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DeletedCount)
}

func TestDeleteManyLoopsWhileMoreData(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"deletedCount":20,"moreData":true}}`),
		makeJsonResponse(200, `{"status":{"deletedCount":20,"moreData":true}}`),
		makeJsonResponse(200, `{"status":{"deletedCount":5}}`),
	)
	coll := newTestCollection(rt)

	result, err := coll.DeleteMany(context.Background(), Filter{"kind": "test"}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(45), result.DeletedCount)
	assert.Len(t, rt.ReceivedRequests, 3)
}

func TestDeleteManyPartialFailure(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"deletedCount":20,"moreData":true}}`),
		makeJsonResponse(200, `{"errors":[{"errorCode":"SERVER_ERROR","message":"boom"}]}`),
	)
	coll := newTestCollection(rt)

	_, err := coll.DeleteMany(context.Background(), nil, nil)
	require.Error(t, err)

	var dmErr DeleteManyError
	require.ErrorAs(t, err, &dmErr)
	assert.Equal(t, int64(20), dmErr.PartialResult.DeletedCount)
}

func TestCountDocuments(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"count":42}}`),
	)
	coll := newTestCollection(rt)

	count, err := coll.CountDocuments(context.Background(), nil, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestCountDocumentsRejectsNonPositiveBound(t *testing.T) {
	coll := newTestCollection(makeTestRoundTripper())

	_, err := coll.CountDocuments(context.Background(), nil, 0, nil)
	require.Error(t, err)
}

func TestCountDocumentsMoreData(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"count":1000,"moreData":true}}`),
	)
	coll := newTestCollection(rt)

	_, err := coll.CountDocuments(context.Background(), nil, 2000, nil)
	require.ErrorIs(t, err, ErrTooManyDocuments)
}

func TestCountDocumentsOverUserBound(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"count":150}}`),
	)
	coll := newTestCollection(rt)

	_, err := coll.CountDocuments(context.Background(), nil, 100, nil)
	require.ErrorIs(t, err, ErrTooManyDocuments)

	var tmErr TooManyDocumentsError
	require.ErrorAs(t, err, &tmErr)
	assert.Equal(t, 100, tmErr.UpperBound)
}

func TestEstimatedDocumentCount(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"count":123456}}`),
	)
	coll := newTestCollection(rt)

	count, err := coll.EstimatedDocumentCount(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), count)
}
