package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"bitenow/metrics"
	"bitenow/models"
)

const genericOrderFailure = "Failed to place order"

// OrderError is a non-2xx answer to POST /orders.
type OrderError struct {
	Status int
	Detail string // server-provided "detail", may be empty
}

func (e *OrderError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return genericOrderFailure
}

var errInvalidReceipt = errors.New("invalid order response")

// SubmitOrder POSTs the order once and returns the backend-assigned id.
func (c *BackendClient) SubmitOrder(ctx context.Context, order models.OrderRequest) (receipt *models.OrderReceipt, err error) {
	requestID := uuid.NewString()
	log := c.log.WithField("request_id", requestID)
	started := time.Now()
	defer func() { metrics.RecordOrder(err, time.Since(started)) }()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Request-ID", requestID).
		SetBody(order).
		Post("/orders")
	if err != nil {
		log.WithError(err).Warn("order request failed")
		return nil, fmt.Errorf("submit order: %w", err)
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		oe := &OrderError{Status: resp.StatusCode()}
		if gjson.ValidBytes(body) {
			if d := gjson.GetBytes(body, "detail"); d.Exists() && d.Type != gjson.Null {
				oe.Detail = d.String()
			}
		}
		log.WithField("status", oe.Status).WithField("detail", oe.Detail).Warn("order rejected")
		return nil, oe
	}
	if !gjson.ValidBytes(body) {
		return nil, errInvalidReceipt
	}

	receipt = &models.OrderReceipt{ID: gjson.GetBytes(body, "id").String()}
	log.WithField("order_id", receipt.ID).Info("order placed")
	return receipt, nil
}
