package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"bitenow/config"
	"bitenow/models"
)

// Backend is the remote storefront API.
type Backend interface {
	FetchMenu(ctx context.Context) ([]models.MenuItem, error)
	SubmitOrder(ctx context.Context, order models.OrderRequest) (*models.OrderReceipt, error)
}

// BackendClient talks to the backend over HTTP. It makes exactly one attempt per call.
type BackendClient struct {
	http *resty.Client
	log  logrus.FieldLogger
}

func NewBackendClient(cfg config.BackendConfig, log logrus.FieldLogger) *BackendClient {
	c := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	return &BackendClient{http: c, log: log}
}

// FetchMenu loads GET /menu. The body may be a bare array of items or an
// object with an "items" array; any other non-null JSON is an empty menu.
func (c *BackendClient) FetchMenu(ctx context.Context) ([]models.MenuItem, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/menu")
	if err != nil {
		return nil, fmt.Errorf("fetch menu: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch menu: status %d", resp.StatusCode())
	}
	items, err := ParseMenu(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("fetch menu: %w", err)
	}
	c.log.WithField("items", len(items)).Debug("menu fetched")
	return items, nil
}

// ParseMenu decodes either menu response shape.
func ParseMenu(body []byte) ([]models.MenuItem, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON body")
	}
	res := gjson.ParseBytes(body)
	var raw string
	switch {
	case res.IsArray():
		raw = res.Raw
	case res.IsObject():
		list := res.Get("items")
		if !list.IsArray() {
			return []models.MenuItem{}, nil
		}
		raw = list.Raw
	case res.Type == gjson.Null:
		return nil, fmt.Errorf("unexpected null menu body")
	default:
		// A scalar has no items.
		return []models.MenuItem{}, nil
	}
	items := []models.MenuItem{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode menu items: %w", err)
	}
	return items, nil
}
