package dacmdx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/datastax/astra-db-go/daejsonx"
	"github.com/datastax/astra-db-go/dahttpx"
	"go.uber.org/zap"
)

// Executor issues one JSON command per call against a keyspace or
// collection scoped endpoint. It holds no mutable state between calls;
// monitoring and deadline budgeting are layered on by the caller.
type Executor struct {
	Logger          *zap.Logger
	Transport       http.RoundTripper
	UserAgent       string
	Endpoint        string
	Token           string
	EmbeddingAPIKey string
	Coercion        daejsonx.CoercionPolicy
}

// RawResponse is the decoded response envelope of a successful command.
type RawResponse struct {
	Status map[string]interface{}
	Data   map[string]interface{}
	Errors []ErrorDescriptor
}

type ExecuteOptions struct {
	Keyspace   string
	Collection string
}

func (x Executor) NewRequest(
	ctx context.Context,
	path string, body io.Reader,
) (*http.Request, error) {
	return dahttpx.RequestBuilder{
		UserAgent:       x.UserAgent,
		Endpoint:        x.Endpoint,
		Token:           x.Token,
		EmbeddingAPIKey: x.EmbeddingAPIKey,
	}.NewRequest(ctx, "POST", path, "application/json", body)
}

func (x Executor) Execute(ctx context.Context, command map[string]interface{}, opts *ExecuteOptions) (*RawResponse, error) {
	if opts == nil {
		opts = &ExecuteOptions{}
	}

	path := ""
	if opts.Keyspace != "" {
		path += "/" + opts.Keyspace
		if opts.Collection != "" {
			path += "/" + opts.Collection
		}
	}

	reqBytes, err := daejsonx.Encoder{Coercion: x.Coercion}.Encode(command)
	if err != nil {
		return nil, err
	}

	req, err := x.NewRequest(ctx, path, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, err
	}

	resp, err := dahttpx.Client{
		Transport: x.Transport,
	}.Do(req)
	if err != nil {
		return nil, dahttpx.ConnectError{Cause: err}
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == 401 {
		// Always an authentication failure, whatever the body holds; the
		// envelope decode is best-effort for descriptors only.
		envelope, _ := decodeEnvelope(respBody)
		if envelope == nil {
			envelope = &RawResponse{}
		}
		return nil, AuthenticationError{ResponseError{
			Descriptors: envelope.Errors,
			RawResponse: envelope,
		}}
	}

	if resp.StatusCode >= 400 {
		return nil, HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	envelope, err := decodeEnvelope(respBody)
	if err != nil {
		return nil, err
	}

	return classifyEnvelope(envelope)
}

func decodeEnvelope(body []byte) (*RawResponse, error) {
	obj, err := daejsonx.DecodeObject(body)
	if err != nil {
		return nil, err
	}

	envelope := &RawResponse{}
	if status, ok := obj["status"].(map[string]interface{}); ok {
		envelope.Status = status
	}
	if data, ok := obj["data"].(map[string]interface{}); ok {
		envelope.Data = data
	}
	if errs, ok := obj["errors"].([]interface{}); ok {
		for _, rawErr := range errs {
			errObj, ok := rawErr.(map[string]interface{})
			if !ok {
				continue
			}

			desc := ErrorDescriptor{}
			for k, v := range errObj {
				switch k {
				case "errorCode":
					desc.ErrorCode, _ = v.(string)
				case "message":
					desc.Message, _ = v.(string)
				default:
					if desc.Attributes == nil {
						desc.Attributes = make(map[string]interface{})
					}
					desc.Attributes[k] = v
				}
			}
			envelope.Errors = append(envelope.Errors, desc)
		}
	}

	return envelope, nil
}

func classifyEnvelope(envelope *RawResponse) (*RawResponse, error) {
	if len(envelope.Errors) == 0 {
		return envelope, nil
	}

	first := envelope.Errors[0]

	if first.Message == "UNAUTHENTICATED: Invalid token" {
		return nil, AuthenticationError{ResponseError{
			Descriptors: envelope.Errors,
			RawResponse: envelope,
		}}
	}

	if first.ErrorCode == "COLLECTION_NOT_EXIST" {
		return nil, CollectionNotFoundError{
			ResponseError: ResponseError{
				Descriptors: envelope.Errors,
				RawResponse: envelope,
			},
			CollectionName: parseCollectionName(first.Message),
		}
	}

	return nil, ResponseError{
		Descriptors: envelope.Errors,
		RawResponse: envelope,
	}
}

// The server reports the missing collection as a ": "-delimited suffix of
// the error message.
func parseCollectionName(message string) string {
	idx := strings.LastIndex(message, ": ")
	if idx < 0 {
		return ""
	}
	return message[idx+2:]
}
