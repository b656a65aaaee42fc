// Package crmtest is an in-process stand-in for the CRM backend API. Tests
// mount it behind httptest.NewServer; the `crm demo` command serves it on a
// real port so the console can be exercised without a backend.
package crmtest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/finlink/crm-console-go/internal/model"
)

var signingKey = []byte("crmtest-signing-key")

type credential struct {
	password string
	user     model.User
}

type Server struct {
	mu        sync.Mutex
	nextID    int64
	creds     map[string]credential
	tokens    map[string]int64
	links     []model.LinkRecord
	banks     []model.Bank
	products  []model.Product
	customers []model.Customer
	sliders   []model.Slider
	terms     model.TermsDocument
}

func New() *Server {
	return &Server{
		nextID: 1000,
		creds:  make(map[string]credential),
		tokens: make(map[string]int64),
		terms:  model.TermsDocument{ID: 1, Content: "Terms and conditions."},
	}
}

// AddUser registers a login credential. The user keeps its ID when set,
// otherwise one is assigned.
func (s *Server) AddUser(user model.User, password string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.allocID()
	}
	s.creds[user.Phone] = credential{password: password, user: user}
	return user
}

// IssueToken mints a valid access token outside the login flow.
func (s *Server) IssueToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.signToken(userID, time.Hour)
	s.tokens[token] = userID
	return token
}

func (s *Server) SetLinks(links ...model.LinkRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append([]model.LinkRecord(nil), links...)
}

func (s *Server) SetBanks(banks ...model.Bank) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks = append([]model.Bank(nil), banks...)
}

func (s *Server) SetProducts(products ...model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append([]model.Product(nil), products...)
}

func (s *Server) SetCustomers(customers ...model.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = append([]model.Customer(nil), customers...)
}

func (s *Server) SetSliders(sliders ...model.Slider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sliders = append([]model.Slider(nil), sliders...)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/auth/login/", s.handleLogin)
	r.Post("/api/auth/register/", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/links/products/links/", s.handleListLinks)
		r.Post("/api/links/products/links/", s.handleCreateLink)
		r.Delete("/api/links/products/links/{id}/", s.handleDeleteLink)
		r.Get("/api/links/banks/", s.handleListBanks)
		r.Post("/api/links/banks/", s.handleCreateBank)
		r.Get("/api/links/products/types/", s.handleListProducts)
		r.Post("/api/links/products/types/", s.handleCreateProduct)
		r.Get("/api/customers/management/", s.handleListCustomers)
		r.Get("/api/users/", s.handleListUsers)
		r.Get("/api/user/{id}/", s.handleGetUser)
		r.Get("/api/homepage-sliders/", s.handleListSliders)
		r.Get("/api/terms/", s.handleGetTerms)
	})

	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[body.Phone]
	if !ok || cred.password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	access := s.signToken(cred.user.ID, time.Hour)
	refresh := s.signToken(cred.user.ID, 24*time.Hour)
	s.tokens[access] = cred.user.ID

	writeJSON(w, http.StatusOK, map[string]any{
		"access":  access,
		"refresh": refresh,
		"user":    cred.user,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var params model.RegisterParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	if params.Phone == "" || params.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Phone and password are required"})
		return
	}
	if params.Password != params.Password2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Passwords do not match"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.creds[params.Phone]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "User with this phone already exists"})
		return
	}

	role := params.Role
	if !role.Valid() {
		role = model.RoleCustomer
	}
	user := model.User{
		ID:        s.allocID(),
		Phone:     params.Phone,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Email:     params.Email,
		Role:      role,
		IsActive:  true,
	}
	s.creds[params.Phone] = credential{password: params.Password, user: user}

	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListLinks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.links)
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var params model.CreateLinkParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocID()
	link := model.LinkRecord{
		ID:                 id,
		Bank:               params.Bank,
		BankName:           s.bankName(params.Bank),
		Product:            params.Product,
		ProductName:        s.productName(params.Product),
		Name:               params.Name,
		UserID:             params.UserID,
		Password:           params.Password,
		UTMLink:            params.UTMLink,
		Description:        params.Description,
		UniqueCustomerLink: "https://apply.example.com/" + strconv.FormatInt(id, 10),
		CreatedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	s.links = append(s.links, link)

	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid link id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, link := range s.links {
		if link.ID == id {
			s.links = append(s.links[:i], s.links[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleListBanks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.banks)
}

func (s *Server) handleCreateBank(w http.ResponseWriter, r *http.Request) {
	var params model.CreateBankParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil || params.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Bank name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bank := model.Bank{ID: s.allocID(), Name: params.Name}
	s.banks = append(s.banks, bank)
	writeJSON(w, http.StatusCreated, bank)
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var params model.CreateProductParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil || params.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Product name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	product := model.Product{ID: s.allocID(), Name: params.Name}
	s.products = append(s.products, product)
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.customers)
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]model.User, 0, len(s.creds))
	for _, cred := range s.creds {
		users = append(users, cred.user)
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid user id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cred := range s.creds {
		if cred.user.ID == id {
			writeJSON(w, http.StatusOK, cred.user)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleListSliders(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sliders)
}

func (s *Server) handleGetTerms(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.terms)
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}

		s.mu.Lock()
		_, valid := s.tokens[token]
		s.mu.Unlock()
		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// signToken mints an HS256 JWT the way the real backend does, so expiry
// introspection on the client side sees a realistic claim set.
func (s *Server) signToken(userID int64, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		// HS256 signing of a map claim set cannot fail at runtime.
		panic(err)
	}
	return token
}

func (s *Server) allocID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) bankName(id int64) string {
	for _, bank := range s.banks {
		if bank.ID == id {
			return bank.Name
		}
	}
	return ""
}

func (s *Server) productName(id int64) string {
	for _, product := range s.products {
		if product.ID == id {
			return product.Name
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
