package llm

import (
	"context"
	"net/http"
)

const (
	cerebrasAPIURL = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasModel  = "llama-3.3-70b"
)

// CerebrasClient talks to Cerebras, which uses the OpenAI-compatible request/response format.
type CerebrasClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewCerebrasClient(apiKey string) *CerebrasClient {
	return &CerebrasClient{
		apiKey:     apiKey,
		baseURL:    cerebrasAPIURL,
		httpClient: &http.Client{},
	}
}

func (c *CerebrasClient) Complete(ctx context.Context, system, user string) (string, error) {
	return completeChat(ctx, c.httpClient, c.baseURL, c.apiKey, cerebrasModel, "cerebras", system, user)
}
