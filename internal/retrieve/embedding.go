// Package retrieve implements C3, hybrid retrieval over the
// catalogue store: query construction, BM25 + embedding search, RRF
// fusion, and the region/unit re-rank passes, §4.3.
package retrieve

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/ecomatch/internal/config"
)

const jinaEmbeddingEndpoint = "https://api.jina.ai/v1/embeddings"

// Embedder produces a dense vector for a piece of text. Implemented
// by JinaEmbedder; tests can substitute a stub.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// JinaEmbedder calls the Jina embeddings API over resty, the same
// HTTP client the reference repo uses for every outbound call.
type JinaEmbedder struct {
	client     *resty.Client
	model      string
	dimensions int
}

func NewJinaEmbedder(cfg config.EmbeddingConfig) *JinaEmbedder {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.BaseURL != "" {
		client.SetBaseURL(cfg.BaseURL)
	}
	return &JinaEmbedder{client: client, model: cfg.Model, dimensions: cfg.Dimensions}
}

type jinaEmbedRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type jinaEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// EmbedQuery embeds one query string, tagged with the "retrieval.query"
// task for asymmetric retrieval models.
func (e *JinaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	req := jinaEmbedRequest{
		Model:         e.model,
		Task:          "retrieval.query",
		Dimensions:    e.dimensions,
		Input:         []string{text},
		EmbeddingType: "float",
	}

	var resp jinaEmbedResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(jinaEmbeddingEndpoint)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding api error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding api error: status %d", httpResp.StatusCode())
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding api returned no data")
	}
	return resp.Data[0].Embedding, nil
}
