package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finlink/crm-console-go/internal/apperr"
	"github.com/finlink/crm-console-go/internal/config"
	"github.com/finlink/crm-console-go/internal/model"
)

// TokenSource supplies the bearer token attached to authenticated requests.
// The session manager implements it; a nil source means every authenticated
// call fails with an auth error before touching the network.
type TokenSource interface {
	AuthToken() (string, bool)
}

// Client is the typed surface over the CRM backend REST API. One instance is
// safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetTokenSource wires the session manager in after construction; the two
// reference each other, so one side has to be attached late.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

type LoginResponse struct {
	Access  string     `json:"access"`
	Refresh string     `json:"refresh"`
	User    model.User `json:"user"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// StatusError is a non-2xx response with the server-supplied message
// extracted from the body.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (c *Client) Login(ctx context.Context, phone, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login/", loginRequest{Phone: phone, Password: password}, &resp, false)
	if err != nil {
		return nil, asAuthError(err, "Login failed")
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, params model.RegisterParams) (*model.User, error) {
	var user model.User
	err := c.do(ctx, http.MethodPost, "/api/auth/register/", params, &user, false)
	if err != nil {
		return nil, asAuthError(err, "Registration failed")
	}
	return &user, nil
}

func (c *Client) ListLinks(ctx context.Context) ([]model.LinkRecord, error) {
	var links []model.LinkRecord
	if err := c.do(ctx, http.MethodGet, "/api/links/products/links/", nil, &links, true); err != nil {
		return nil, apperr.Fetch("links", err)
	}
	return links, nil
}

func (c *Client) CreateLink(ctx context.Context, params model.CreateLinkParams) (*model.LinkRecord, error) {
	var link model.LinkRecord
	if err := c.do(ctx, http.MethodPost, "/api/links/products/links/", params, &link, true); err != nil {
		return nil, apperr.Fetch("link creation", err)
	}
	return &link, nil
}

func (c *Client) DeleteLink(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/links/products/links/%d/", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, true); err != nil {
		return apperr.Fetch("link deletion", err)
	}
	return nil
}

func (c *Client) ListBanks(ctx context.Context) ([]model.Bank, error) {
	var banks []model.Bank
	if err := c.do(ctx, http.MethodGet, "/api/links/banks/", nil, &banks, true); err != nil {
		return nil, apperr.Fetch("banks", err)
	}
	return banks, nil
}

func (c *Client) CreateBank(ctx context.Context, params model.CreateBankParams) (*model.Bank, error) {
	var bank model.Bank
	if err := c.do(ctx, http.MethodPost, "/api/links/banks/", params, &bank, true); err != nil {
		return nil, apperr.Fetch("bank creation", err)
	}
	return &bank, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.do(ctx, http.MethodGet, "/api/links/products/types/", nil, &products, true); err != nil {
		return nil, apperr.Fetch("products", err)
	}
	return products, nil
}

func (c *Client) CreateProduct(ctx context.Context, params model.CreateProductParams) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, http.MethodPost, "/api/links/products/types/", params, &product, true); err != nil {
		return nil, apperr.Fetch("product creation", err)
	}
	return &product, nil
}

func (c *Client) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var customers []model.Customer
	if err := c.do(ctx, http.MethodGet, "/api/customers/management/", nil, &customers, true); err != nil {
		return nil, apperr.Fetch("customers", err)
	}
	return customers, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, "/api/users/", nil, &users, true); err != nil {
		return nil, apperr.Fetch("users", err)
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	path := fmt.Sprintf("/api/user/%d/", id)
	err := c.do(ctx, http.MethodGet, path, nil, &user, true)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Fetch("user", err)
	}
	return &user, nil
}

func (c *Client) ListSliders(ctx context.Context) ([]model.Slider, error) {
	var sliders []model.Slider
	if err := c.do(ctx, http.MethodGet, "/api/homepage-sliders/", nil, &sliders, true); err != nil {
		return nil, apperr.Fetch("sliders", err)
	}
	return sliders, nil
}

func (c *Client) GetTerms(ctx context.Context) (*model.TermsDocument, error) {
	var terms model.TermsDocument
	if err := c.do(ctx, http.MethodGet, "/api/terms/", nil, &terms, true); err != nil {
		return nil, apperr.Fetch("terms", err)
	}
	return &terms, nil
}

// do issues one request and decodes the response into out (when non-nil).
// Non-2xx responses become *StatusError with the server message; transport
// and decode failures come back as plain wrapped errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		if c.tokens == nil {
			return &StatusError{Status: http.StatusUnauthorized, Message: "Not logged in"}
		}
		token, ok := c.tokens.AuthToken()
		if !ok {
			return &StatusError{Status: http.StatusUnauthorized, Message: "Not logged in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().
			Str("requestId", requestID).
			Str("method", method).
			Str("path", path).
			Err(err).
			Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseBodyBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	log.Debug().
		Str("requestId", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: serverMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}

	return nil
}

// serverMessage pulls the human-readable message out of an error body. The
// backend uses "message"; DRF-style endpoints use "detail". Returns empty
// when neither is present.
func serverMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	return ""
}

// asAuthError folds both failure shapes of login/register onto the single
// auth error channel: server rejections keep the server message, everything
// else gets the generic fallback.
func asAuthError(err error, fallback string) *apperr.AppError {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Message != "" {
			return apperr.Auth(statusErr.Message)
		}
		return apperr.Auth(fallback)
	}
	return apperr.AuthUnreachable(err)
}
