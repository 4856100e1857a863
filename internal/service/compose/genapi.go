package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

const (
	// genAPINetwork — модель генерации на стороне GenAPI.
	genAPINetwork = "gemini-flash-image"

	// DefaultGenAPIEndpoint — endpoint создания задач GenAPI.
	DefaultGenAPIEndpoint = "https://api.gen-api.ru/api/v1/networks"
)

// GenAPIClient генерирует коллажи через GenAPI в синхронном режиме.
// В отличие от OpenRouter, GenAPI принимает только публичные ссылки,
// поэтому оригинал передаётся через URL медиахранилища.
type GenAPIClient struct {
	endpoint string
	apiKey   string
	store    domain.FileStore
	client   *http.Client
	logger   *log.Entry
}

// NewGenAPIClient создаёт клиента GenAPI.
func NewGenAPIClient(endpoint, apiKey string, store domain.FileStore) *GenAPIClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultGenAPIEndpoint
	}
	return &GenAPIClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		store:    store,
		client:   &http.Client{Timeout: 120 * time.Second},
		logger:   log.WithField("component", "compose.genapi"),
	}
}

type genAPIRequest struct {
	Prompt         string   `json:"prompt"`
	IsSync         bool     `json:"is_sync"`
	ImageURLs      []string `json:"image_urls"`
	TranslateInput bool     `json:"translate_input"`
}

type genAPIResponse struct {
	RequestID json.Number `json:"request_id"`
	Images    []string    `json:"images"`
}

// Generate создаёт синхронную задачу генерации и скачивает готовое изображение.
func (c *GenAPIClient) Generate(ctx context.Context, originalPath, prompt string, refImages []string) (domain.ComposeResult, error) {
	imageURLs := make([]string, 0, len(refImages)+1)
	imageURLs = append(imageURLs, c.store.URL(originalPath))
	imageURLs = append(imageURLs, refImages...)

	payload := genAPIRequest{
		Prompt:         prompt,
		IsSync:         true,
		ImageURLs:      imageURLs,
		TranslateInput: true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("compose: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+genAPINetwork, bytes.NewReader(body))
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("compose: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(log.Fields{
		"network":    genAPINetwork,
		"image_urls": len(imageURLs),
	}).Info("отправляем запрос на генерацию")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("%w: genapi request: %v", domain.ErrComposeTemporary, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("%w: read response: %v", domain.ErrComposeTemporary, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domain.ComposeResult{}, fmt.Errorf("%w: genapi status %d: %s", domain.ErrComposeTemporary, resp.StatusCode, truncate(respBody))
	case resp.StatusCode >= 400:
		return domain.ComposeResult{}, fmt.Errorf("%w: genapi status %d: %s", domain.ErrComposeRejected, resp.StatusCode, truncate(respBody))
	}

	var parsed genAPIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.ComposeResult{}, fmt.Errorf("%w: decode response: %v", domain.ErrComposeRejected, err)
	}
	if parsed.RequestID.String() == "" {
		return domain.ComposeResult{}, fmt.Errorf("%w: missing request_id", domain.ErrComposeRejected)
	}
	if len(parsed.Images) == 0 {
		return domain.ComposeResult{}, fmt.Errorf("%w: no images in sync response", domain.ErrComposeRejected)
	}

	imageURL := parsed.Images[0]
	if _, err := url.ParseRequestURI(imageURL); err != nil {
		return domain.ComposeResult{}, fmt.Errorf("%w: invalid image url %q", domain.ErrComposeRejected, imageURL)
	}

	imageData, err := c.download(ctx, imageURL)
	if err != nil {
		return domain.ComposeResult{}, err
	}

	c.logger.WithField("request_id", parsed.RequestID.String()).Info("изображение получено, сохраняем результат")
	return storeResult(c.store, imageData)
}

func (c *GenAPIClient) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build download request: %v", domain.ErrComposeRejected, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download image: %v", domain.ErrComposeTemporary, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download image status %d", domain.ErrComposeTemporary, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var _ domain.ComposeGateway = (*GenAPIClient)(nil)
