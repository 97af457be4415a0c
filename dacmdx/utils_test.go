package dacmdx_test

import (
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/datastax/astra-db-go/dacmdx"
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

func makeSingleTestRoundTripper(statusCode int, body string) *testRoundTripper {
	return &testRoundTripper{
		Responses: []unifiedResponseError{
			{
				Response: &http.Response{
					StatusCode: statusCode,
					Header:     http.Header{"Content-Type": []string{"application/json"}},
					Body:       io.NopCloser(strings.NewReader(body)),
				},
			},
		},
	}
}

func makeTestExecutor(rt http.RoundTripper) dacmdx.Executor {
	return dacmdx.Executor{
		Logger:    zap.NewNop(),
		Transport: rt,
		UserAgent: "astra-db-go test",
		Endpoint:  "https://db.test.example.com/api/json/v1",
		Token:     "test-token",
	}
}
