package dacmdx_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastax/astra-db-go/dacmdx"
)

func TestExecuteBuildsCollectionPath(t *testing.T) {
	rt := makeSingleTestRoundTripper(200, `{"status":{"ok":1}}`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"findOne": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.NoError(t, err)

	req := rt.ReceivedRequests[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/api/json/v1/ks/coll", req.URL.Path)
	assert.Equal(t, "test-token", req.Header.Get("Token"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestExecuteKeyspaceOnlyPath(t *testing.T) {
	rt := makeSingleTestRoundTripper(200, `{"status":{"ok":1}}`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"createCollection": map[string]interface{}{"name": "coll"}},
		&dacmdx.ExecuteOptions{Keyspace: "ks"})
	require.NoError(t, err)

	assert.Equal(t, "/api/json/v1/ks", rt.ReceivedRequests[0].URL.Path)
}

func TestExecuteSendsSingleKeyCommand(t *testing.T) {
	rt := makeSingleTestRoundTripper(200, `{"status":{"ok":1}}`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"findOne": map[string]interface{}{"filter": map[string]interface{}{"_id": "x"}}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.NoError(t, err)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rt.ReceivedBodies[0], &body))
	require.Len(t, body, 1)
	assert.Contains(t, body, "findOne")
}

func TestExecuteParsesEnvelope(t *testing.T) {
	rt := makeSingleTestRoundTripper(200,
		`{"status":{"insertedIds":["doc-1"]},"data":{"document":{"_id":"doc-1"}}}`)

	resp, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"insertOne": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.NoError(t, err)

	ids, _ := resp.Status["insertedIds"].([]interface{})
	require.Len(t, ids, 1)
	assert.Equal(t, "doc-1", ids[0])

	doc, _ := resp.Data["document"].(map[string]interface{})
	assert.Equal(t, "doc-1", doc["_id"])
}

func TestExecute401IsAuthenticationError(t *testing.T) {
	rt := makeSingleTestRoundTripper(401, `{"errors":[{"message":"UNAUTHENTICATED: Invalid token"}]}`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"findOne": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.ErrorIs(t, err, dacmdx.ErrAuthentication)
}

func TestExecute401NonJsonBodyIsAuthenticationError(t *testing.T) {
	// Proxies and gateways answer 401 with plain text; the status code alone
	// decides the classification.
	rt := makeSingleTestRoundTripper(401, `Unauthorized`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"findOne": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.ErrorIs(t, err, dacmdx.ErrAuthentication)

	var authErr dacmdx.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Empty(t, authErr.Descriptors)
}

func TestExecuteInvalidTokenMessageIsAuthenticationError(t *testing.T) {
	// Some deployments report bad tokens as a 200 with an error envelope.
	rt := makeSingleTestRoundTripper(200, `{"errors":[{"message":"UNAUTHENTICATED: Invalid token"}]}`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"findOne": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.ErrorIs(t, err, dacmdx.ErrAuthentication)
}

func TestExecuteCollectionNotFound(t *testing.T) {
	rt := makeSingleTestRoundTripper(200,
		`{"errors":[{"errorCode":"COLLECTION_NOT_EXIST","message":"Collection does not exist, collection name: missingcoll"}]}`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"findOne": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "missingcoll"})
	require.ErrorIs(t, err, dacmdx.ErrCollectionNotFound)

	var notFoundErr dacmdx.CollectionNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, "missingcoll", notFoundErr.CollectionName)
}

func TestExecuteGenericErrorsAreResponseError(t *testing.T) {
	rt := makeSingleTestRoundTripper(200,
		`{"errors":[{"errorCode":"INVALID_QUERY","message":"bad filter","family":"REQUEST"}]}`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"find": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.Error(t, err)

	var respErr dacmdx.ResponseError
	require.ErrorAs(t, err, &respErr)
	require.Len(t, respErr.Descriptors, 1)
	assert.Equal(t, "INVALID_QUERY", respErr.Descriptors[0].ErrorCode)
	assert.Equal(t, "bad filter", respErr.Descriptors[0].Message)
	assert.Equal(t, "REQUEST", respErr.Descriptors[0].Attributes["family"])
}

func TestExecuteHttpErrorOnServerFailure(t *testing.T) {
	rt := makeSingleTestRoundTripper(503, `<html>service unavailable</html>`)

	_, err := makeTestExecutor(rt).Execute(context.Background(),
		map[string]interface{}{"findOne": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.Error(t, err)

	var httpErr dacmdx.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.StatusCode)
}

func TestExecuteEmbeddingHeader(t *testing.T) {
	rt := makeSingleTestRoundTripper(200, `{"status":{"ok":1}}`)

	executor := makeTestExecutor(rt)
	executor.EmbeddingAPIKey = "embed-key"

	_, err := executor.Execute(context.Background(),
		map[string]interface{}{"findOne": map[string]interface{}{}},
		&dacmdx.ExecuteOptions{Keyspace: "ks", Collection: "coll"})
	require.NoError(t, err)

	assert.Equal(t, "embed-key", rt.ReceivedRequests[0].Header.Get("x-embedding-api-key"))
}
