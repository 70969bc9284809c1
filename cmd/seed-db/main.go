// Command seed-db loads the catalog (repair services, rental bicycles),
// surcharge rates, and starter coupons into the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/repository"
)

const (
	upsertItemSQL = `INSERT INTO catalog_items (id, name, category, unit_price, description, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category,
			unit_price = EXCLUDED.unit_price, description = EXCLUDED.description,
			active = TRUE`

	upsertSurchargeSQL = `INSERT INTO surcharge_rates (kind, amount)
		VALUES ($1, $2)
		ON CONFLICT (kind) DO UPDATE SET amount = EXCLUDED.amount`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_type, value, min_amount, max_discount,
			usage_limit, used_count, categories, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, TRUE)
		ON CONFLICT (code) DO NOTHING`
)

type seedFile struct {
	Items      []itemJSON        `json:"items"`
	Surcharges map[string]string `json:"surcharges"`
	Coupons    []couponJSON      `json:"coupons"`
}

type itemJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description string          `json:"description"`
}

type couponJSON struct {
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	MaxDiscount  decimal.Decimal `json:"max_discount"`
	UsageLimit   int             `json:"usage_limit"`
	Categories   []string        `json:"categories"`
	ValidDays    int             `json:"valid_days"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrapf(err, "read %s", seedPath)
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return errors.Wrapf(err, "parse %s", seedPath)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, seed); err != nil {
		return err
	}
	return seedCoupons(ctx, pool, seed.Coupons)
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, seed seedFile) error {
	for _, item := range seed.Items {
		_, err := pool.Exec(ctx, upsertItemSQL,
			item.ID, item.Name, item.Category, item.UnitPrice, item.Description)
		if err != nil {
			return errors.Wrapf(err, "upsert item %s", item.ID)
		}
	}
	slog.Info("catalog items seeded", slog.Int("count", len(seed.Items)))

	for kind, amount := range seed.Surcharges {
		rate, err := decimal.NewFromString(amount)
		if err != nil {
			return errors.Wrapf(err, "parse surcharge for %s", kind)
		}
		if _, err := pool.Exec(ctx, upsertSurchargeSQL, kind, rate); err != nil {
			return errors.Wrapf(err, "upsert surcharge %s", kind)
		}
	}
	slog.Info("surcharge rates seeded", slog.Int("count", len(seed.Surcharges)))
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, coupons []couponJSON) error {
	for _, c := range coupons {
		validDays := c.ValidDays
		if validDays <= 0 {
			validDays = 90
		}
		expires := time.Now().AddDate(0, 0, validDays)

		_, err := pool.Exec(ctx, upsertCouponSQL,
			c.Code, c.DiscountType, c.Value, c.MinAmount, c.MaxDiscount,
			c.UsageLimit, c.Categories, expires)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
	}
	slog.Info("coupons seeded", slog.Int("count", len(coupons)))
	return nil
}
