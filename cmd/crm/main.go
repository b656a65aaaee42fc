package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/finlink/crm-console-go/internal/api"
	"github.com/finlink/crm-console-go/internal/apperr"
	"github.com/finlink/crm-console-go/internal/config"
	"github.com/finlink/crm-console-go/internal/crmtest"
	"github.com/finlink/crm-console-go/internal/matrix"
	"github.com/finlink/crm-console-go/internal/model"
	"github.com/finlink/crm-console-go/internal/session"
	"github.com/finlink/crm-console-go/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	if command == "demo" {
		runDemo(cfg)
		return
	}

	store, err := storage.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session storage")
	}

	client := api.NewClient(cfg.APIBase(), cfg.RequestTimeout())
	manager := session.NewManager(client, store)
	client.SetTokenSource(manager)

	ctx := context.Background()
	manager.Init(ctx)

	switch command {
	case "login":
		err = runLogin(ctx, manager, args)
	case "register":
		err = runRegister(ctx, manager, args)
	case "logout":
		manager.Logout()
		fmt.Println("Logged out.")
	case "whoami":
		err = runWhoami(manager)
	case "links":
		err = runLinks(ctx, manager, client)
	case "banks":
		err = runBanks(ctx, manager, client)
	case "products":
		err = runProducts(ctx, manager, client)
	case "customers":
		err = runCustomers(ctx, manager, client)
	case "users":
		err = runUsers(ctx, manager, client)
	case "sliders":
		err = runSliders(ctx, manager, client)
	case "terms":
		err = runTerms(ctx, manager, client)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", apperr.UserMessage(err))
		log.Debug().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: crm <command> [flags]

Commands:
  login      Authenticate and persist the session
  register   Create an account (does not log in)
  logout     Clear the persisted session
  whoami     Show the current session
  links      Show the bank x product link matrix
  banks      List banks
  products   List product types
  customers  List customers
  users      List users
  sliders    List homepage sliders
  terms      Show the terms document
  demo       Run a local fake backend`)
}

func runLogin(ctx context.Context, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	phone := fs.String("phone", "", "account phone number")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if *phone == "" {
		return apperr.MissingRequired("phone")
	}
	if *password == "" {
		return apperr.MissingRequired("password")
	}

	sess, err := manager.Login(ctx, *phone, *password)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s %s (%s)\n", sess.User.FirstName, sess.User.LastName, sess.User.Role)
	if expiry, ok := manager.AccessExpiry(); ok {
		fmt.Printf("Session valid until %s\n", expiry.Local().Format(time.RFC1123))
	}
	return nil
}

func runRegister(ctx context.Context, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	phone := fs.String("phone", "", "phone number")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	email := fs.String("email", "", "email address")
	role := fs.String("role", string(model.RoleCustomer), "role: ADMIN, STAFF, CONNECTOR or CUSTOMER")
	password := fs.String("password", "", "password")
	password2 := fs.String("password2", "", "password confirmation")
	fs.Parse(args)

	if *phone == "" {
		return apperr.MissingRequired("phone")
	}
	if *password == "" {
		return apperr.MissingRequired("password")
	}
	if *password != *password2 {
		return apperr.Validation("Passwords do not match")
	}
	if !model.Role(*role).Valid() {
		return apperr.Validation("Invalid role: " + *role)
	}

	user, err := manager.Register(ctx, model.RegisterParams{
		Phone:     *phone,
		FirstName: *firstName,
		LastName:  *lastName,
		Email:     *email,
		Role:      model.Role(*role),
		Password:  *password,
		Password2: *password2,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s (id %d). Log in with: crm login -phone %s\n", user.Phone, user.ID, user.Phone)
	return nil
}

func runWhoami(manager *session.Manager) error {
	sess, ok := manager.Current()
	if !ok {
		fmt.Println("Not logged in.")
		return nil
	}

	fmt.Printf("%s %s <%s>\n", sess.User.FirstName, sess.User.LastName, sess.User.Email)
	fmt.Printf("Phone: %s  Role: %s\n", sess.User.Phone, sess.User.Role)
	if expiry, ok := manager.AccessExpiry(); ok {
		fmt.Printf("Session valid until %s\n", expiry.Local().Format(time.RFC1123))
	}
	return nil
}

func requireLogin(manager *session.Manager) error {
	if manager.State() != session.StateAuthenticated {
		return apperr.Auth("Not logged in; run: crm login")
	}
	return nil
}

func runLinks(ctx context.Context, manager *session.Manager, client *api.Client) error {
	if err := requireLogin(manager); err != nil {
		return err
	}

	links, err := client.ListLinks(ctx)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		fmt.Println("No links found yet.")
		return nil
	}

	grid := matrix.Build(links)
	renderMatrix(grid)
	return nil
}

func renderMatrix(grid matrix.Matrix) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprint(w, "Bank")
	for _, product := range grid.Columns() {
		fmt.Fprintf(w, "\t%s", product.Name)
	}
	fmt.Fprintln(w)

	for _, bank := range grid.Rows() {
		fmt.Fprint(w, bank.Name)
		for _, product := range grid.Columns() {
			if link, ok := grid.Cell(bank.ID, product.ID); ok {
				fmt.Fprintf(w, "\t%s", link.Name)
			} else {
				fmt.Fprint(w, "\t-")
			}
		}
		fmt.Fprintln(w)
	}
}

func runBanks(ctx context.Context, manager *session.Manager, client *api.Client) error {
	if err := requireLogin(manager); err != nil {
		return err
	}

	banks, err := client.ListBanks(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tName")
	for _, bank := range banks {
		fmt.Fprintf(w, "%d\t%s\n", bank.ID, bank.Name)
	}
	return nil
}

func runProducts(ctx context.Context, manager *session.Manager, client *api.Client) error {
	if err := requireLogin(manager); err != nil {
		return err
	}

	products, err := client.ListProducts(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tName")
	for _, product := range products {
		fmt.Fprintf(w, "%d\t%s\n", product.ID, product.Name)
	}
	return nil
}

func runCustomers(ctx context.Context, manager *session.Manager, client *api.Client) error {
	if err := requireLogin(manager); err != nil {
		return err
	}

	customers, err := client.ListCustomers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tName\tPhone\tEmail\tStatus")
	for _, customer := range customers {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			customer.ID, customer.Name, customer.Phone, customer.Email, customer.Status)
	}
	return nil
}

func runUsers(ctx context.Context, manager *session.Manager, client *api.Client) error {
	if err := requireLogin(manager); err != nil {
		return err
	}

	users, err := client.ListUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tName\tPhone\tEmail\tRole")
	for _, user := range users {
		fmt.Fprintf(w, "%d\t%s %s\t%s\t%s\t%s\n",
			user.ID, user.FirstName, user.LastName, user.Phone, user.Email, user.Role)
	}
	return nil
}

func runSliders(ctx context.Context, manager *session.Manager, client *api.Client) error {
	if err := requireLogin(manager); err != nil {
		return err
	}

	sliders, err := client.ListSliders(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tCaption\tActive\tOrder")
	for _, slider := range sliders {
		fmt.Fprintf(w, "%d\t%s\t%t\t%d\n", slider.ID, slider.Caption, slider.IsActive, slider.Order)
	}
	return nil
}

func runTerms(ctx context.Context, manager *session.Manager, client *api.Client) error {
	if err := requireLogin(manager); err != nil {
		return err
	}

	terms, err := client.GetTerms(ctx)
	if err != nil {
		return err
	}
	fmt.Println(terms.Content)
	return nil
}

// runDemo serves the fake backend so the console can be tried end to end:
// CRM_BASE_URL=http://localhost:8080 crm login -phone 1000000001 -password demo
func runDemo(cfg *config.Config) {
	figure.NewFigure("CRM Console", "cybermedium", true).Print()

	backend := crmtest.New()
	seedDemo(backend)

	server := &http.Server{
		Addr:         cfg.DemoAddr(),
		Handler:      backend.Router(),
		ReadTimeout:  config.DemoReadTimeout,
		WriteTimeout: config.DemoWriteTimeout,
		IdleTimeout:  config.DemoIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.DemoAddr()).Msg("starting demo backend")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("demo backend error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down demo backend")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("demo backend forced to shutdown")
	}
}

func seedDemo(backend *crmtest.Server) {
	backend.AddUser(model.User{
		ID:        1,
		Phone:     "1000000001",
		FirstName: "Demo",
		LastName:  "Admin",
		Email:     "admin@example.com",
		Role:      model.RoleAdmin,
		IsActive:  true,
	}, "demo")

	backend.SetBanks(
		model.Bank{ID: 1, Name: "First National"},
		model.Bank{ID: 2, Name: "Union Trust"},
	)
	backend.SetProducts(
		model.Product{ID: 10, Name: "Credit Card"},
		model.Product{ID: 11, Name: "Personal Loan"},
	)
	backend.SetLinks(
		model.LinkRecord{
			ID: 100, Bank: 1, BankName: "First National", Product: 10, ProductName: "Credit Card",
			Name: "FN credit card", UniqueCustomerLink: "https://apply.example.com/100",
		},
		model.LinkRecord{
			ID: 101, Bank: 1, BankName: "First National", Product: 11, ProductName: "Personal Loan",
			Name: "FN personal loan", UniqueCustomerLink: "https://apply.example.com/101",
		},
		model.LinkRecord{
			ID: 102, Bank: 2, BankName: "Union Trust", Product: 10, ProductName: "Credit Card",
			Name: "UT credit card", UniqueCustomerLink: "https://apply.example.com/102",
		},
	)
	backend.SetCustomers(
		model.Customer{ID: 500, Name: "Ada Marsh", Phone: "2000000001", Email: "ada@example.com", Status: "active"},
	)
	backend.SetSliders(
		model.Slider{ID: 1, Image: "https://cdn.example.com/slide1.png", Caption: "Welcome", IsActive: true, Order: 1},
	)
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
