package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlink/crm-console-go/internal/apperr"
	"github.com/finlink/crm-console-go/internal/crmtest"
	"github.com/finlink/crm-console-go/internal/model"
)

type staticTokens struct {
	token string
}

func (s staticTokens) AuthToken() (string, bool) {
	return s.token, s.token != ""
}

func newTestClient(t *testing.T) (*Client, *crmtest.Server) {
	t.Helper()

	backend := crmtest.New()
	server := httptest.NewServer(backend.Router())
	t.Cleanup(server.Close)

	return NewClient(server.URL, 5*time.Second), backend
}

func authedClient(t *testing.T) (*Client, *crmtest.Server) {
	t.Helper()

	client, backend := newTestClient(t)
	user := backend.AddUser(model.User{Phone: "5550001111", Role: model.RoleAdmin}, "pw")
	client.SetTokenSource(staticTokens{token: backend.IssueToken(user.ID)})
	return client, backend
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("returns tokens and user on success", func(t *testing.T) {
		client, backend := newTestClient(t)
		backend.AddUser(model.User{ID: 3, Phone: "5550001111", FirstName: "Ada", Role: model.RoleAdmin}, "pw")

		resp, err := client.Login(ctx, "5550001111", "pw")
		require.NoError(t, err)

		assert.NotEmpty(t, resp.Access)
		assert.NotEmpty(t, resp.Refresh)
		assert.Equal(t, int64(3), resp.User.ID)
		assert.Equal(t, "Ada", resp.User.FirstName)
	})

	t.Run("carries the server message on rejection", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.Login(ctx, "5550001111", "nope")
		require.Error(t, err)

		appErr, ok := apperr.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperr.ErrCodeAuth, appErr.Code)
		assert.Equal(t, "Invalid credentials", appErr.Message)
	})

	t.Run("network failure maps to the auth channel", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)

		_, err := client.Login(ctx, "5550001111", "pw")
		require.Error(t, err)
		assert.Equal(t, apperr.ErrCodeAuth, apperr.GetCode(err))
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the created user", func(t *testing.T) {
		client, _ := newTestClient(t)

		user, err := client.Register(ctx, model.RegisterParams{
			Phone:     "5552223333",
			FirstName: "New",
			Role:      model.RoleCustomer,
			Password:  "pw123456",
			Password2: "pw123456",
		})
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, "5552223333", user.Phone)
	})

	t.Run("mismatched passwords are rejected with the server message", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.Register(ctx, model.RegisterParams{
			Phone:     "5552223333",
			Password:  "one",
			Password2: "two",
		})
		require.Error(t, err)
		assert.Equal(t, "Passwords do not match", apperr.UserMessage(err))
	})
}

func TestAuthenticatedRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("lists links with a bearer token", func(t *testing.T) {
		client, backend := authedClient(t)
		backend.SetLinks(model.LinkRecord{ID: 1, Bank: 1, BankName: "A", Product: 10, ProductName: "X"})

		links, err := client.ListLinks(ctx)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "A", links[0].BankName)
	})

	t.Run("fails without a token source", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.ListLinks(ctx)
		require.Error(t, err)
		assert.Equal(t, apperr.ErrCodeFetch, apperr.GetCode(err))
	})

	t.Run("fails with an invalid token", func(t *testing.T) {
		client, _ := newTestClient(t)
		client.SetTokenSource(staticTokens{token: "forged"})

		_, err := client.ListLinks(ctx)
		require.Error(t, err)
		assert.Equal(t, apperr.ErrCodeFetch, apperr.GetCode(err))
	})

	t.Run("create and delete link round trip", func(t *testing.T) {
		client, backend := authedClient(t)
		backend.SetBanks(model.Bank{ID: 1, Name: "First National"})
		backend.SetProducts(model.Product{ID: 10, Name: "Credit Card"})

		link, err := client.CreateLink(ctx, model.CreateLinkParams{
			Bank: 1, Product: 10, Name: "FN card",
		})
		require.NoError(t, err)
		assert.Equal(t, "First National", link.BankName)
		assert.NotEmpty(t, link.UniqueCustomerLink)

		require.NoError(t, client.DeleteLink(ctx, link.ID))

		links, err := client.ListLinks(ctx)
		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("missing user maps to not found", func(t *testing.T) {
		client, _ := authedClient(t)

		_, err := client.GetUser(ctx, 424242)
		require.Error(t, err)
		assert.Equal(t, apperr.ErrCodeNotFound, apperr.GetCode(err))
	})

	t.Run("lists banks, products and customers", func(t *testing.T) {
		client, backend := authedClient(t)
		backend.SetBanks(model.Bank{ID: 1, Name: "A"}, model.Bank{ID: 2, Name: "B"})
		backend.SetProducts(model.Product{ID: 10, Name: "X"})
		backend.SetCustomers(model.Customer{ID: 9, Name: "Ada", Status: "active"})

		banks, err := client.ListBanks(ctx)
		require.NoError(t, err)
		assert.Len(t, banks, 2)

		products, err := client.ListProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 1)

		customers, err := client.ListCustomers(ctx)
		require.NoError(t, err)
		require.Len(t, customers, 1)
		assert.Equal(t, "Ada", customers[0].Name)
	})

	t.Run("fetches the terms document", func(t *testing.T) {
		client, _ := authedClient(t)

		terms, err := client.GetTerms(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, terms.Content)
	})
}

func TestServerMessage(t *testing.T) {
	t.Run("prefers message over detail", func(t *testing.T) {
		assert.Equal(t, "boom", serverMessage([]byte(`{"message":"boom","detail":"other"}`)))
	})

	t.Run("falls back to detail", func(t *testing.T) {
		assert.Equal(t, "nope", serverMessage([]byte(`{"detail":"nope"}`)))
	})

	t.Run("empty for unparseable bodies", func(t *testing.T) {
		assert.Empty(t, serverMessage([]byte("<html>")))
		assert.Empty(t, serverMessage(nil))
	})
}
