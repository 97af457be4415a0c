package astradb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseAppendsDataApiSuffix(t *testing.T) {
	client := newTestClient(makeTestRoundTripper())

	db := client.Database("https://db.test.example.com", nil)
	assert.Equal(t, "https://db.test.example.com/api/json/v1", db.Endpoint())

	explicit := client.Database("https://db.test.example.com/api/json/v1", nil)
	assert.Equal(t, "https://db.test.example.com/api/json/v1", explicit.Endpoint())
}

func TestDatabaseDefaultKeyspace(t *testing.T) {
	client := newTestClient(makeTestRoundTripper())

	db := client.Database("https://db.test.example.com", nil)
	assert.Equal(t, "default_keyspace", db.Keyspace())

	other := client.Database("https://db.test.example.com", &DatabaseOptions{Keyspace: "custom"})
	assert.Equal(t, "custom", other.Keyspace())
}

func TestCreateCollectionWithVectorOptions(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"ok":1}}`),
	)
	db := newTestClient(rt).Database("https://db.test.example.com", nil)

	coll, err := db.CreateCollection(context.Background(), "vectors", &CreateCollectionOptions{
		Vector: &VectorOptions{Dimension: 5, Metric: "cosine"},
	})
	require.NoError(t, err)
	assert.Equal(t, "vectors", coll.Name())

	// Collection admin commands target the keyspace path, not a collection.
	assert.Equal(t, "/api/json/v1/default_keyspace", rt.ReceivedRequests[0].URL.Path)

	create := commandSection(t, rt.ReceivedBodies[0], "createCollection")
	assert.Equal(t, "vectors", create["name"])
	options, _ := create["options"].(map[string]interface{})
	require.NotNil(t, options)
	vector, _ := options["vector"].(map[string]interface{})
	require.NotNil(t, vector)
	assert.Equal(t, float64(5), vector["dimension"])
	assert.Equal(t, "cosine", vector["metric"])
}

func TestDropCollectionSendsDeleteCollection(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"ok":1}}`),
	)
	db := newTestClient(rt).Database("https://db.test.example.com", nil)

	err := db.DropCollection(context.Background(), "oldcoll", nil)
	require.NoError(t, err)

	deleteColl := commandSection(t, rt.ReceivedBodies[0], "deleteCollection")
	assert.Equal(t, "oldcoll", deleteColl["name"])
}

func TestListCollections(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"collections":[
			{"name":"coll1","options":{"vector":{"dimension":5}}},
			{"name":"coll2"}
		]}}`),
	)
	db := newTestClient(rt).Database("https://db.test.example.com", nil)

	descriptors, err := db.ListCollections(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, descriptors, 2)
	assert.Equal(t, "coll1", descriptors[0].Name)
	require.NotNil(t, descriptors[0].Options)
	assert.Equal(t, "coll2", descriptors[1].Name)

	find := commandSection(t, rt.ReceivedBodies[0], "findCollections")
	options, _ := find["options"].(map[string]interface{})
	require.NotNil(t, options)
	assert.Equal(t, true, options["explain"])
}

func TestListCollectionNames(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"collections":["coll1","coll2"]}}`),
	)
	db := newTestClient(rt).Database("https://db.test.example.com", nil)

	names, err := db.ListCollectionNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"coll1", "coll2"}, names)
}

func TestRawCommandEscapeHatch(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"custom":true}}`),
	)
	db := newTestClient(rt).Database("https://db.test.example.com", nil)

	resp, err := db.Command(context.Background(), map[string]interface{}{
		"someNewOperation": map[string]interface{}{"arg": 1},
	}, &CommandOptions{Collection: "testcoll"})
	require.NoError(t, err)

	assert.Equal(t, true, resp.Status["custom"])
	assert.Equal(t, "/api/json/v1/default_keyspace/testcoll", rt.ReceivedRequests[0].URL.Path)
}

func TestDatabaseTokenOverride(t *testing.T) {
	rt := makeTestRoundTripper(
		makeJsonResponse(200, `{"status":{"ok":1}}`),
	)

	db := newTestClient(rt).Database("https://db.test.example.com", &DatabaseOptions{
		Token: "scoped-token",
	})

	_, err := db.Command(context.Background(), map[string]interface{}{
		"findCollections": map[string]interface{}{},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "scoped-token", rt.ReceivedRequests[0].Header.Get("Token"))
}
