// Package chapa is a payment.Gateway backed by the Chapa HTTP API.
package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sudo-init-do/staybook/internal/payment"
)

const maxBody = 1 << 20

var _ payment.Gateway = (*Client)(nil)

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewClient returns a client whose every request is bounded by timeout.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer("staybook/chapa"),
	}
}

type initializeBody struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url"`
	ReturnURL   string `json:"return_url"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) message() string {
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	return string(e.Message)
}

func (c *Client) Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResponse, error) {
	ctx, span := c.tracer.Start(ctx, "chapa.initialize", trace.WithAttributes(
		attribute.String("payment.tx_ref", req.TxRef),
		attribute.String("payment.currency", req.Currency),
	))
	defer span.End()

	body, err := json.Marshal(initializeBody{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Email:       req.Payer.Email,
		FirstName:   req.Payer.FirstName,
		LastName:    req.Payer.LastName,
		TxRef:       req.TxRef,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
	})
	if err != nil {
		return nil, err
	}

	env, raw, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, fail(span, err)
	}

	resp := &payment.InitiateResponse{
		Status:  payment.GatewayFailed,
		Message: env.message(),
		TxRef:   req.TxRef,
		Raw:     raw,
	}
	switch env.Status {
	case payment.GatewaySuccess:
		var data struct {
			CheckoutURL string `json:"checkout_url"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
			return nil, fail(span, &payment.GatewayError{Op: "initialize", Body: raw, Err: errors.New("success without checkout_url")})
		}
		resp.Status = payment.GatewaySuccess
		resp.CheckoutURL = data.CheckoutURL
	case payment.GatewayFailed:
	default:
		return nil, fail(span, &payment.GatewayError{Op: "initialize", Body: raw, Err: fmt.Errorf("unexpected status %q", env.Status)})
	}
	span.SetAttributes(attribute.String("payment.gateway_status", resp.Status))
	return resp, nil
}

// Verify maps the provider's answer onto success, pending or failed. Only an
// explicit decline is reported as failed; anything else unexpected is an error
// so the payment stays Pending and can be verified again.
func (c *Client) Verify(ctx context.Context, txRef string) (*payment.VerifyResponse, error) {
	ctx, span := c.tracer.Start(ctx, "chapa.verify", trace.WithAttributes(
		attribute.String("payment.tx_ref", txRef),
	))
	defer span.End()

	env, raw, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(txRef), nil)
	if err != nil {
		return nil, fail(span, err)
	}

	var status string
	switch env.Status {
	case payment.GatewaySuccess:
		var data struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fail(span, &payment.GatewayError{Op: "verify", Body: raw, Err: fmt.Errorf("decode data: %w", err)})
		}
		switch strings.ToLower(data.Status) {
		case "success":
			status = payment.GatewaySuccess
		case "pending":
			status = payment.GatewayPending
		case "failed", "cancelled":
			status = payment.GatewayFailed
		default:
			return nil, fail(span, &payment.GatewayError{Op: "verify", Body: raw, Err: fmt.Errorf("unknown transaction status %q", data.Status)})
		}
	case payment.GatewayFailed:
		// declined, or the provider has no such transaction
		status = payment.GatewayFailed
	default:
		return nil, fail(span, &payment.GatewayError{Op: "verify", Body: raw, Err: fmt.Errorf("unexpected status %q", env.Status)})
	}
	span.SetAttributes(attribute.String("payment.gateway_status", status))
	return &payment.VerifyResponse{Status: status, Raw: raw}, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// decisive reports whether a response with this status code carries a
// provider decision. Credential, throttling and server errors do not.
func decisive(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return code < 500
}

// do sends the request and decodes the Chapa envelope. Responses without a
// provider decision come back as *payment.GatewayError.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*envelope, json.RawMessage, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &payment.GatewayError{Op: path, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, nil, &payment.GatewayError{Op: path, StatusCode: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if !decisive(res.StatusCode) {
		return nil, nil, &payment.GatewayError{Op: path, StatusCode: res.StatusCode, Body: raw}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, &payment.GatewayError{Op: path, StatusCode: res.StatusCode, Body: raw, Err: err}
	}
	return &env, json.RawMessage(raw), nil
}
