// Command coupon-ingest bulk-loads campaign coupon codes from a
// gzip-compressed list (one code per line) produced by the marketing code
// generator. Duplicate codes inside a drop are filtered with a bloom filter
// before touching the database.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	minCodeLen    = 6
	maxCodeLen    = 12

	insertCouponSQL = `INSERT INTO coupons (code, discount_type, value, min_amount, max_discount,
			usage_limit, used_count, categories, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, TRUE)
		ON CONFLICT (code) DO NOTHING`
)

func main() {
	var (
		codesFile    string
		databaseURL  string
		discountType string
		value        string
		minAmount    string
		maxDiscount  string
		usageLimit   int
		categories   string
		validDays    int
	)

	flag.StringVar(&codesFile, "codes-file", "", "gzip-compressed file with one coupon code per line")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&discountType, "discount-type", "percentage", "discount type: percentage or fixed")
	flag.StringVar(&value, "value", "10", "discount value (percent or flat amount)")
	flag.StringVar(&minAmount, "min-amount", "0", "minimum eligible subtotal")
	flag.StringVar(&maxDiscount, "max-discount", "0", "discount cap, 0 = uncapped")
	flag.IntVar(&usageLimit, "usage-limit", 1, "uses per code")
	flag.StringVar(&categories, "categories", "all", "comma-separated applicable categories")
	flag.IntVar(&validDays, "valid-days", 90, "days until the codes expire")
	flag.Parse()

	if codesFile == "" {
		slog.Error("codes file is required: set --codes-file")
		os.Exit(1)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rule := couponRule{
		discountType: discountType,
		value:        value,
		minAmount:    minAmount,
		maxDiscount:  maxDiscount,
		usageLimit:   usageLimit,
		categories:   strings.Split(categories, ","),
		expiresAt:    time.Now().AddDate(0, 0, validDays),
	}

	if err := run(ctx, codesFile, databaseURL, rule); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

type couponRule struct {
	discountType string
	value        string
	minAmount    string
	maxDiscount  string
	usageLimit   int
	categories   []string
	expiresAt    time.Time
}

func run(ctx context.Context, codesFile, databaseURL string, rule couponRule) error {
	value, err := decimal.NewFromString(rule.value)
	if err != nil {
		return errors.Wrap(err, "parse value")
	}
	minAmount, err := decimal.NewFromString(rule.minAmount)
	if err != nil {
		return errors.Wrap(err, "parse min amount")
	}
	maxDiscount, err := decimal.NewFromString(rule.maxDiscount)
	if err != nil {
		return errors.Wrap(err, "parse max discount")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var total, inserted, dupes uint64

	err = streamGzFile(ctx, codesFile, func(code string) error {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			return nil
		}

		total++
		if total%progressEvery == 0 {
			slog.Info("ingest progress",
				slog.Uint64("codes", total),
				slog.Uint64("inserted", inserted),
			)
		}

		// The filter can report a fresh code as seen, never the reverse, so
		// a false positive only skips a code, it cannot double-insert.
		if seen.TestOrAddString(code) {
			dupes++
			return nil
		}

		if err := insertCode(ctx, pool, code, rule, value, minAmount, maxDiscount); err != nil {
			return err
		}
		inserted++
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("total", total),
		slog.Uint64("inserted", inserted),
		slog.Uint64("duplicates", dupes),
	)
	return nil
}

func insertCode(
	ctx context.Context,
	pool *pgxpool.Pool,
	code string,
	rule couponRule,
	value, minAmount, maxDiscount decimal.Decimal,
) error {
	_, err := pool.Exec(ctx, insertCouponSQL,
		code, rule.discountType, value, minAmount, maxDiscount,
		rule.usageLimit, rule.categories, rule.expiresAt)
	if err != nil {
		return errors.Wrapf(err, "insert coupon %s", code)
	}
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
