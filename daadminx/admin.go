package daadminx

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"

	"github.com/datastax/astra-db-go/dahttpx"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Admin speaks the REST-ish DevOps protocol: method + path + query + JSON
// body against a single endpoint, bearer token auth. Admin calls are always
// made over the legacy HTTP/1 wire path.
type Admin struct {
	Logger    *zap.Logger
	Transport http.RoundTripper
	UserAgent string
	Endpoint  string
	Token     string
}

type RequestInfo struct {
	Method string
	Path   string
	Query  interface{}
	Body   interface{}
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Data       []byte
}

func (a Admin) Execute(ctx context.Context, reqInfo *RequestInfo) (*Response, error) {
	path := reqInfo.Path
	if reqInfo.Query != nil {
		vals, err := query.Values(reqInfo.Query)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode query parameters")
		}
		if encoded := vals.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}

	var body io.Reader
	contentType := ""
	if reqInfo.Body != nil {
		bodyBytes, err := json.Marshal(reqInfo.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		body = bytes.NewReader(bodyBytes)
		contentType = "application/json"
	}

	req, err := dahttpx.RequestBuilder{
		UserAgent:     a.UserAgent,
		Endpoint:      a.Endpoint,
		Token:         a.Token,
		UseBearerAuth: true,
	}.NewRequest(ctx, reqInfo.Method, path, contentType, body)
	if err != nil {
		return nil, err
	}

	resp, err := dahttpx.Client{
		Transport: legacyTransport(a.Transport),
	}.Do(req)
	if err != nil {
		return nil, dahttpx.ConnectError{Cause: err}
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, ServerError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Data:       respBody,
	}, nil
}

// GetDatabaseState fetches the current lifecycle status string of a
// database, for use by long-running-operation polling loops.
func (a Admin) GetDatabaseState(ctx context.Context, databaseID string) (string, *Response, error) {
	resp, err := a.Execute(ctx, &RequestInfo{
		Method: "GET",
		Path:   "/databases/" + databaseID,
	})
	if err != nil {
		return "", nil, err
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Data, &parsed); err != nil {
		return "", resp, errors.Wrap(err, "failed to parse database status")
	}

	return parsed.Status, resp, nil
}

func legacyTransport(rt http.RoundTripper) http.RoundTripper {
	base, ok := rt.(*http.Transport)
	if !ok {
		return rt
	}

	legacy := base.Clone()
	legacy.ForceAttemptHTTP2 = false
	legacy.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return legacy
}
