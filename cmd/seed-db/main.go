// Command seed-db loads the product catalog, default coupons, and the
// initial admin account into the database. Every write is an upsert, so
// rerunning the tool is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/varejo/shop-api/internal/repository"
	"github.com/varejo/shop-api/pkg/password"
)

const (
	upsertProductSQL = `INSERT INTO products (id, title, slug, category, price, quantity, sold)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, slug = EXCLUDED.slug, category = EXCLUDED.category,
			price = EXCLUDED.price, quantity = EXCLUDED.quantity`

	upsertCouponSQL = `INSERT INTO coupons (id, code, percent, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET
			percent = EXCLUDED.percent, description = EXCLUDED.description`

	upsertAdminSQL = `INSERT INTO users (id, first_name, last_name, email, phone, password_hash, role)
		VALUES ($1, 'Admin', '', $2, '', $3, 'admin')
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = 'admin'`
)

type productJSON struct {
	ID       string          `json:"id"`
	Title    string          `json:"titulo"`
	Slug     string          `json:"slug"`
	Category string          `json:"categoria"`
	Price    decimal.Decimal `json:"preco"`
	Quantity int             `json:"quantidade"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "admin@example.com", "admin account email")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or SHOP_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("SHOP_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or SHOP_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAdmin(ctx, pool, adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin user")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, p := range products {
		g.Go(func() error {
			if _, err := pool.Exec(ctx, upsertProductSQL,
				p.ID, p.Title, p.Slug, p.Category, p.Price, p.Quantity,
			); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			slog.Info("upserted product", slog.String("id", p.ID), slog.String("title", p.Title))
			return nil
		})
	}
	return g.Wait()
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding default coupons")

	coupons := []struct {
		code        string
		percent     decimal.Decimal
		description string
	}{
		{"SAVE10", decimal.NewFromInt(10), "10% off the whole cart"},
		{"BEMVINDO", decimal.NewFromInt(15), "Welcome discount: 15% off"},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			uuid.New().String(), c.code, c.percent, c.description,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code))
	}
	return nil
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, pass string) error {
	slog.Info("seeding admin account", slog.String("email", email))

	hash, err := password.NewBcryptHasher(0).Hash(pass)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	if _, err := pool.Exec(ctx, upsertAdminSQL, uuid.New().String(), email, hash); err != nil {
		return errors.Wrap(err, "upsert admin")
	}
	return nil
}
