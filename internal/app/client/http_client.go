package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"vgsync/internal/app/client/config"
	"vgsync/internal/domain/catalog"
	"vgsync/internal/domain/chat"
	"vgsync/internal/domain/order"
	syncdom "vgsync/internal/domain/sync"
	"vgsync/internal/domain/user"
)

// APIError is a non-2xx response decoded into something callers can
// inspect. Validation failures (4xx except auth and rate limiting)
// must not be retried by the sync queue.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// IsValidation reports whether the error is a client-side data problem
// that retrying cannot fix.
func (e *APIError) IsValidation() bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusTooManyRequests:
		return false
	}
	return e.Status >= 400 && e.Status < 500
}

type apiClient struct {
	client  *http.Client
	log     *slog.Logger
	baseURL string
	token   func() string
}

// NewAPIClient builds the REST client. token is read per request so a
// re-login takes effect without rebuilding the client.
func NewAPIClient(cfg *config.Config, token func() string, log *slog.Logger) *apiClient {
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &apiClient{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log:     log,
		baseURL: scheme + cfg.ServerAddress,
		token:   token,
	}
}

// Health checks server reachability.
func (a *apiClient) Health(ctx context.Context) error {
	resp, err := a.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	return a.parseResponse(resp, nil)
}

// GetProducts fetches the catalog page matching filter.
func (a *apiClient) GetProducts(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.SellerID != "" {
		q.Set("seller_id", filter.SellerID)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.MinPrice > 0 {
		q.Set("min_price", strconv.FormatInt(filter.MinPrice, 10))
	}
	if filter.MaxPrice > 0 {
		q.Set("max_price", strconv.FormatInt(filter.MaxPrice, 10))
	}

	path := "/api/v1/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Products []catalog.Product `json:"products"`
	}
	if err := a.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// GetMyOrders fetches the authenticated user's orders.
func (a *apiClient) GetMyOrders(ctx context.Context) ([]order.Order, error) {
	resp, err := a.doRequest(ctx, http.MethodGet, "/api/v1/orders/my-orders", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Orders []order.Order `json:"orders"`
	}
	if err := a.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// GetChats fetches the authenticated user's conversations.
func (a *apiClient) GetChats(ctx context.Context) ([]chat.Chat, error) {
	resp, err := a.doRequest(ctx, http.MethodGet, "/api/v1/chats", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Chats []chat.Chat `json:"chats"`
	}
	if err := a.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// GetMessages fetches the recent messages of a chat.
func (a *apiClient) GetMessages(ctx context.Context, chatID string) ([]chat.Message, error) {
	resp, err := a.doRequest(ctx, http.MethodGet, "/api/v1/chats/"+url.PathEscape(chatID)+"/messages", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := a.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// GetFavorites fetches the authenticated user's favorite products.
func (a *apiClient) GetFavorites(ctx context.Context) ([]catalog.Product, error) {
	resp, err := a.doRequest(ctx, http.MethodGet, "/api/v1/products/favorites", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Favorites []catalog.Product `json:"favorites"`
	}
	if err := a.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

// GetProfile fetches the authenticated user's profile.
func (a *apiClient) GetProfile(ctx context.Context) (*user.User, error) {
	resp, err := a.doRequest(ctx, http.MethodGet, "/api/v1/users/profile", nil)
	if err != nil {
		return nil, err
	}

	var out user.User
	if err := a.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchSync posts queued actions and receives fresh server data plus
// per-action verdicts.
func (a *apiClient) BatchSync(ctx context.Context, req syncdom.BatchRequest) (*syncdom.BatchResponse, error) {
	resp, err := a.doRequest(ctx, http.MethodPost, "/api/v1/sync", req)
	if err != nil {
		return nil, err
	}

	var out syncdom.BatchResponse
	if err := a.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *apiClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if tok := a.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	a.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	return resp, nil
}

func (a *apiClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	a.log.Debug("received response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil {
			apiErr.Message = errResp.Error
			if apiErr.Message == "" {
				apiErr.Message = errResp.Message
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}
