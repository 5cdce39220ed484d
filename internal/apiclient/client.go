package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Paths on the upstream shop API.
const (
	productsPath = "/product/"
	orderPath    = "/order"
)

// ProductsResponse is the catalog listing returned by the shop API.
type ProductsResponse struct {
	Items []models.Product `json:"items"`
	Total int              `json:"total"`
}

// OrderResult is the shop API's acknowledgement of a submitted order. Total
// is authoritative and may differ from the locally computed total.
type OrderResult struct {
	ID    string `json:"id"`
	Total int64  `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ShopAPI is the narrow interface the flow controller consumes.
type ShopAPI interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
	SubmitOrder(ctx context.Context, payload models.OrderPayload, idempotencyKey string) (*OrderResult, error)
}

// Client talks to the upstream shop API over HTTP.
type Client struct {
	baseURL    string
	cdnURL     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a shop API client. cdnURL prefixes relative product
// image paths.
func NewClient(baseURL, cdnURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		cdnURL:     strings.TrimSuffix(cdnURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     util.GetLogger(),
	}
}

// FetchProducts retrieves the full catalog. Image URLs come back absolute.
func (c *Client) FetchProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ShopAPI.FetchProducts")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+productsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build products request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("products request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("products request failed: %s", c.readError(resp))
	}

	var out ProductsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode products response: %w", err)
	}

	for i := range out.Items {
		out.Items[i].Image = c.absoluteImageURL(out.Items[i].Image)
	}

	c.logger.Info("Catalog fetched", zap.Int("products", len(out.Items)))
	return out.Items, nil
}

// SubmitOrder posts the prepared order payload. A non-2xx response with an
// {error} body surfaces as an error carrying the server's message.
func (c *Client) SubmitOrder(ctx context.Context, payload models.OrderPayload, idempotencyKey string) (*OrderResult, error) {
	ctx, span := util.StartSpan(ctx, "ShopAPI.SubmitOrder")
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+orderPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("order rejected: %s", c.readError(resp))
	}

	var out OrderResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	c.logger.Info("Order accepted",
		zap.String("order_id", out.ID),
		zap.Int64("total", out.Total))
	return &out, nil
}

func (c *Client) absoluteImageURL(image string) string {
	if image == "" || strings.Contains(image, "://") {
		return image
	}
	return c.cdnURL + "/" + strings.TrimPrefix(image, "/")
}

func (c *Client) readError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return e.Error
		}
	}
	return resp.Status
}
