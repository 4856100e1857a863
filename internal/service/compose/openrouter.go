package compose

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

const (
	// openRouterModel — мультимодальная модель, умеющая возвращать изображения.
	openRouterModel = "google/gemini-2.5-flash-image-preview"

	// DefaultOpenRouterEndpoint — chat/completions endpoint OpenRouter.
	DefaultOpenRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
)

// OpenRouterClient генерирует коллажи через OpenRouter chat API: оригинал
// уходит в запрос как base64 data-URI, референсы коллажа — прямыми ссылками.
type OpenRouterClient struct {
	endpoint string
	apiKey   string
	store    domain.FileStore
	client   *http.Client
	logger   *log.Entry
}

// NewOpenRouterClient создаёт клиента OpenRouter.
func NewOpenRouterClient(endpoint, apiKey string, store domain.FileStore) *OpenRouterClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultOpenRouterEndpoint
	}
	return &OpenRouterClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		store:    store,
		client:   &http.Client{Timeout: 120 * time.Second},
		logger:   log.WithField("component", "compose.openrouter"),
	}
}

type openRouterContent struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	ImageURL *openRouterImageURL `json:"image_url,omitempty"`
}

type openRouterImageURL struct {
	URL string `json:"url"`
}

type openRouterRequest struct {
	Model      string              `json:"model"`
	Messages   []openRouterMessage `json:"messages"`
	Modalities []string            `json:"modalities"`
}

type openRouterMessage struct {
	Role    string              `json:"role"`
	Content []openRouterContent `json:"content"`
}

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Images []struct {
				ImageURL openRouterImageURL `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate собирает коллаж: оригинал + референсы + промпт одним user-сообщением,
// картинки в content идут перед текстом.
func (c *OpenRouterClient) Generate(ctx context.Context, originalPath, prompt string, refImages []string) (domain.ComposeResult, error) {
	originalData, err := c.store.Get(originalPath)
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("compose: read original: %w", err)
	}

	mime := http.DetectContentType(originalData)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(originalData))

	content := make([]openRouterContent, 0, len(refImages)+2)
	content = append(content, openRouterContent{Type: "image_url", ImageURL: &openRouterImageURL{URL: dataURL}})
	for _, ref := range refImages {
		content = append(content, openRouterContent{Type: "image_url", ImageURL: &openRouterImageURL{URL: ref}})
	}
	content = append(content, openRouterContent{Type: "text", Text: prompt})

	payload := openRouterRequest{
		Model:      openRouterModel,
		Messages:   []openRouterMessage{{Role: "user", Content: content}},
		Modalities: []string{"image", "text"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("compose: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("compose: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(log.Fields{
		"model":      openRouterModel,
		"ref_images": len(refImages),
	}).Info("отправляем запрос на генерацию")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("%w: openrouter request: %v", domain.ErrComposeTemporary, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("%w: read response: %v", domain.ErrComposeTemporary, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domain.ComposeResult{}, fmt.Errorf("%w: openrouter status %d: %s", domain.ErrComposeTemporary, resp.StatusCode, truncate(respBody))
	case resp.StatusCode >= 400:
		return domain.ComposeResult{}, fmt.Errorf("%w: openrouter status %d: %s", domain.ErrComposeRejected, resp.StatusCode, truncate(respBody))
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.ComposeResult{}, fmt.Errorf("%w: decode response: %v", domain.ErrComposeRejected, err)
	}
	if len(parsed.Choices) == 0 || len(parsed.Choices[0].Message.Images) == 0 {
		return domain.ComposeResult{}, fmt.Errorf("%w: no images in response", domain.ErrComposeRejected)
	}

	imageData, err := c.fetchImage(ctx, parsed.Choices[0].Message.Images[0].ImageURL.URL)
	if err != nil {
		return domain.ComposeResult{}, err
	}

	c.logger.Info("изображение получено, сохраняем результат")
	return storeResult(c.store, imageData)
}

// fetchImage достаёт байты изображения: либо из data-URI, либо по внешней ссылке.
func (c *OpenRouterClient) fetchImage(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:") {
		parts := strings.SplitN(src, ";base64,", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: malformed data uri", domain.ErrComposeRejected)
		}
		data, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: decode data uri: %v", domain.ErrComposeRejected, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build image request: %v", domain.ErrComposeRejected, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch image: %v", domain.ErrComposeTemporary, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch image status %d", domain.ErrComposeTemporary, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func truncate(b []byte) string {
	const max = 512
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}

var _ domain.ComposeGateway = (*OpenRouterClient)(nil)
