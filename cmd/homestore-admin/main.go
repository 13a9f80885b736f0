// Package main is the entry point for the HOME store admin CLI.
// This tool provides administrative commands for managing users and products.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/home-store/internal/config"
	"github.com/prn-tf/home-store/internal/events"
	"github.com/prn-tf/home-store/internal/repository/dbfactory"
	"github.com/prn-tf/home-store/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("HOME Store Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		exitOnError(runUser(os.Args[2:]))

	case "product":
		exitOnError(runProduct(os.Args[2:]))

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the services the admin commands operate on.
type app struct {
	users    *service.UserService
	products *service.ProductService
	close    func()
}

func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	db, err := dbfactory.NewFactory(cfg.Database, logger).Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	userCfg := service.UserServiceConfig{
		BcryptCost:        cfg.Auth.BcryptCost,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		MaxImageSize:      cfg.Media.MaxUploadSize,
	}

	return &app{
		users:    service.NewUserService(db.Repos.User, nil, events.NewLogPublisher(logger), userCfg, logger),
		products: service.NewProductService(db.Repos.Product, logger),
		close:    func() { db.Database.Close() },
	}, nil
}

// =============================================================================
// User Commands
// =============================================================================

func runUser(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: homestore-admin user <create|list> [flags]")
	}

	switch args[0] {
	case "create":
		return userCreate(args[1:])
	case "list":
		return userList(args[1:])
	default:
		return fmt.Errorf("unknown user command: %s", args[0])
	}
}

func userCreate(args []string) error {
	fs := flag.NewFlagSet("user create", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	username := fs.String("username", "", "username (required)")
	email := fs.String("email", "", "email address (required)")
	password := fs.String("password", "", "password (required)")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	_ = fs.Parse(args)

	ctx := context.Background()
	a, err := openApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()

	out, err := a.users.Create(ctx, service.CreateUserInput{
		Username:        *username,
		Email:           *email,
		FirstName:       *firstName,
		LastName:        *lastName,
		Password:        *password,
		PasswordConfirm: *password,
	})
	if err != nil {
		if fields := service.FieldErrors(err); fields != nil {
			for field, msg := range fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
			}
		}
		return err
	}

	fmt.Printf("Created user %q (id %d)\n", out.User.Username, out.User.ID)
	return nil
}

func userList(args []string) error {
	fs := flag.NewFlagSet("user list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	limit := fs.Int("limit", 20, "maximum number of users")
	offset := fs.Int("offset", 0, "number of users to skip")
	_ = fs.Parse(args)

	ctx := context.Background()
	a, err := openApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()

	out, err := a.users.List(ctx, service.ListUsersInput{Limit: *limit, Offset: *offset})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tNAME\tACTIVE\tJOINED")
	for _, u := range out.Users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n",
			u.ID, u.Username, u.Email, u.FullName(), u.IsActive, u.CreatedAt.Format("2006-01-02"))
	}
	_ = w.Flush()
	fmt.Printf("\n%d of %d users\n", len(out.Users), out.TotalCount)
	return nil
}

// =============================================================================
// Product Commands
// =============================================================================

func runProduct(args []string) error {
	if len(args) < 1 || args[0] != "create" {
		return fmt.Errorf("usage: homestore-admin product create [flags]")
	}

	fs := flag.NewFlagSet("product create", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	name := fs.String("name", "", "product name (required)")
	slug := fs.String("slug", "", "URL slug (derived from name when empty)")
	description := fs.String("description", "", "description")
	price := fs.String("price", "0", "price")
	discount := fs.String("discount", "0", "discount percentage")
	quantity := fs.Int("quantity", 0, "stock quantity")
	_ = fs.Parse(args[1:])

	priceValue, err := decimal.NewFromString(*price)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", *price, err)
	}
	discountValue, err := decimal.NewFromString(*discount)
	if err != nil {
		return fmt.Errorf("invalid discount %q: %w", *discount, err)
	}

	ctx := context.Background()
	a, err := openApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()

	product, err := a.products.Create(ctx, service.CreateProductInput{
		Name:        *name,
		Slug:        *slug,
		Description: *description,
		Price:       priceValue,
		Discount:    discountValue,
		Quantity:    *quantity,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created product %q (id %d, slug %s, sell price %s)\n",
		product.Name, product.ID, product.Slug, product.SellPrice().StringFixed(2))
	return nil
}

func printUsage() {
	fmt.Println(`HOME Store Admin CLI

Usage:
  homestore-admin <command> [arguments]

Commands:
  user        Manage users (create, list)
  product     Manage catalogue products (create)
  version     Print version information
  help        Show this help message

Examples:
  homestore-admin user create --username admin --email admin@example.com --password 's3cret-pass'
  homestore-admin user list --limit 50
  homestore-admin product create --name "Oak table" --price 249.90 --discount 10 --quantity 5

All commands accept --config <path>; HOMESTORE_* environment variables apply.`)
}
