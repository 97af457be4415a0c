package daadminx_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datastax/astra-db-go/daadminx"
)

type testRoundTripper struct {
	ReceivedRequests []*http.Request
	ReceivedBodies   [][]byte
	Responses        []*http.Response

	count int
}

func (rt *testRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.ReceivedRequests = append(rt.ReceivedRequests, req)

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	rt.ReceivedBodies = append(rt.ReceivedBodies, body)

	c := rt.count
	rt.count++
	return rt.Responses[c], nil
}

func makeJsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func makeTestAdmin(rt http.RoundTripper) daadminx.Admin {
	return daadminx.Admin{
		Logger:    zap.NewNop(),
		Transport: rt,
		UserAgent: "astra-db-go test",
		Endpoint:  "https://api.test.example.com/v2",
		Token:     "test-token",
	}
}

func TestExecuteBearerAuth(t *testing.T) {
	rt := &testRoundTripper{Responses: []*http.Response{
		makeJsonResponse(200, `{"id":"db-1"}`),
	}}

	resp, err := makeTestAdmin(rt).Execute(context.Background(), &daadminx.RequestInfo{
		Method: "GET",
		Path:   "/databases/db-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req := rt.ReceivedRequests[0]
	assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Token"))
	assert.Equal(t, "/v2/databases/db-1", req.URL.Path)
}

func TestExecuteEncodesQueryParameters(t *testing.T) {
	rt := &testRoundTripper{Responses: []*http.Response{
		makeJsonResponse(200, `[]`),
	}}

	type listQuery struct {
		Provider string `url:"provider,omitempty"`
		Limit    int    `url:"limit,omitempty"`
	}

	_, err := makeTestAdmin(rt).Execute(context.Background(), &daadminx.RequestInfo{
		Method: "GET",
		Path:   "/databases",
		Query:  listQuery{Provider: "GCP", Limit: 10},
	})
	require.NoError(t, err)

	query := rt.ReceivedRequests[0].URL.Query()
	assert.Equal(t, "GCP", query.Get("provider"))
	assert.Equal(t, "10", query.Get("limit"))
}

func TestExecuteMarshalsJsonBody(t *testing.T) {
	rt := &testRoundTripper{Responses: []*http.Response{
		makeJsonResponse(201, `{"id":"db-1"}`),
	}}

	_, err := makeTestAdmin(rt).Execute(context.Background(), &daadminx.RequestInfo{
		Method: "POST",
		Path:   "/databases",
		Body:   map[string]interface{}{"name": "testdb"},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", rt.ReceivedRequests[0].Header.Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rt.ReceivedBodies[0], &body))
	assert.Equal(t, "testdb", body["name"])
}

func TestExecuteServerError(t *testing.T) {
	rt := &testRoundTripper{Responses: []*http.Response{
		makeJsonResponse(403, `{"errors":[{"message":"forbidden"}]}`),
	}}

	_, err := makeTestAdmin(rt).Execute(context.Background(), &daadminx.RequestInfo{
		Method: "GET",
		Path:   "/databases/db-1",
	})
	require.Error(t, err)

	var serverErr daadminx.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 403, serverErr.StatusCode)
	assert.Contains(t, string(serverErr.Body), "forbidden")
}

func TestGetDatabaseState(t *testing.T) {
	rt := &testRoundTripper{Responses: []*http.Response{
		makeJsonResponse(200, `{"id":"db-1","status":"ACTIVE"}`),
	}}

	state, resp, err := makeTestAdmin(rt).GetDatabaseState(context.Background(), "db-1")
	require.NoError(t, err)

	assert.Equal(t, "ACTIVE", state)
	require.NotNil(t, resp)
	assert.Equal(t, "GET", rt.ReceivedRequests[0].Method)
	assert.Equal(t, "/v2/databases/db-1", rt.ReceivedRequests[0].URL.Path)
}
