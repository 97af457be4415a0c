package astradb

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type unifiedResponseError struct {
	Response *http.Response
	Err      error
}

type testRoundTripper struct {
	ReceivedRequests []*http.Request
	ReceivedBodies   [][]byte
	Responses        []unifiedResponseError

	count int
}

func (rt *testRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	rt.ReceivedRequests = append(rt.ReceivedRequests, req)

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	rt.ReceivedBodies = append(rt.ReceivedBodies, body)

	c := rt.count
	rt.count++
	return rt.Responses[c].Response, rt.Responses[c].Err
}

func makeTestRoundTripper(responses ...unifiedResponseError) *testRoundTripper {
	return &testRoundTripper{
		Responses: responses,
	}
}

func makeJsonResponse(statusCode int, body string) unifiedResponseError {
	return unifiedResponseError{
		Response: &http.Response{
			StatusCode: statusCode,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		},
	}
}

func newTestClient(rt http.RoundTripper) *Client {
	return NewClient("test-token", &ClientOptions{
		Logger:    zap.NewNop(),
		Transport: rt,
		UserAgent: "astra-db-go test",
	})
}

func newTestCollection(rt http.RoundTripper) *Collection {
	db := newTestClient(rt).Database("https://db.test.example.com", nil)
	return db.Collection("testcoll", nil)
}

func parseCommandBody(t *testing.T, body []byte) map[string]interface{} {
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &parsed))
	return parsed
}

func commandSection(t *testing.T, body []byte, name string) map[string]interface{} {
	parsed := parseCommandBody(t, body)
	section, ok := parsed[name].(map[string]interface{})
	require.True(t, ok, "command body missing %s section", name)
	return section
}
