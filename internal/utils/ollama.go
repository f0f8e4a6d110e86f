package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EmbeddingClient 本地 Ollama embedding 服务客户端
type EmbeddingClient struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewEmbeddingClient 创建 embedding 客户端
func NewEmbeddingClient(host, model string) *EmbeddingClient {
	return &EmbeddingClient{
		host:  host,
		model: model,
		httpClient: &http.Client{
			// embedding 大批量文本可能较慢
			Timeout: 120 * time.Second,
		},
	}
}

// embeddingRequest Ollama embedding API 请求结构
type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embeddingResponse Ollama embedding API 响应结构
type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed 调用 Ollama API 生成向量
func (c *EmbeddingClient) Embed(text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Model:  c.model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %v", err)
	}

	resp, err := c.httpClient.Post(fmt.Sprintf("%s/api/embeddings", c.host), "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned error status: %d", resp.StatusCode)
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response failed: %v", err)
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}

	return result.Embedding, nil
}
