package dahttpx

import (
	"context"
	"io"
	"net/http"
)

type RequestBuilder struct {
	UserAgent       string
	Endpoint        string
	Token           string
	UseBearerAuth   bool
	EmbeddingAPIKey string
}

func (h RequestBuilder) NewRequest(
	ctx context.Context,
	method, path, contentType string,
	body io.Reader,
) (*http.Request, error) {
	uri := h.Endpoint + path
	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	if h.Token != "" {
		if h.UseBearerAuth {
			req.Header.Set("Authorization", "Bearer "+h.Token)
		} else {
			req.Header.Set("Token", h.Token)
		}
	}

	if h.EmbeddingAPIKey != "" {
		req.Header.Set("x-embedding-api-key", h.EmbeddingAPIKey)
	}

	return req, nil
}
