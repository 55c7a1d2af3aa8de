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
	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/domain/catalog"
	"github.com/northmill/storefront/internal/domain/coupon"
	"github.com/northmill/storefront/internal/domain/promo"
	"github.com/northmill/storefront/internal/repository"
)

type productJSON struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	Gender        string          `json:"gender"`
	Category      string          `json:"category"`
	ChildCategory string          `json:"childCategory"`
}

type campaignJSON struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Active        bool            `json:"active"`
	DiscountKind  string          `json:"discountKind"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	ScopeKind     string          `json:"scopeKind"`
	ScopeTargets  []string        `json:"scopeTargets"`
	StartsAt      time.Time       `json:"startsAt"`
	EndsAt        time.Time       `json:"endsAt"`
}

type couponJSON struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Kind         string          `json:"kind"`
	Value        decimal.Decimal `json:"value"`
	Status       string          `json:"status"`
	ScopeKind    string          `json:"scopeKind"`
	ScopeTargets []string        `json:"scopeTargets"`
	Display      string          `json:"display"`
	StartsAt     time.Time       `json:"startsAt"`
	EndsAt       time.Time       `json:"endsAt"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		campaignsFile string
		couponsFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&campaignsFile, "campaigns-file", "db/seed/campaigns.json", "path to campaigns JSON file")
	flag.StringVar(&couponsFile, "coupons-file", "db/seed/coupons.json", "path to coupons JSON file")
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

	if err := run(ctx, databaseURL, productsFile, campaignsFile, couponsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, campaignsFile, couponsFile string) error {
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

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCampaigns(ctx, repository.NewCampaignRepository(pool), campaignsFile); err != nil {
		return errors.Wrap(err, "seed campaigns")
	}
	if err := seedCoupons(ctx, repository.NewCouponRepository(pool), couponsFile); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, path string) error {
	var products []productJSON
	if err := readJSON(path, &products); err != nil {
		return err
	}

	for _, p := range products {
		err := repo.Create(ctx, &catalog.Product{
			ID:            p.ID,
			Name:          p.Name,
			Image:         p.Image,
			Price:         p.Price,
			Stock:         p.Stock,
			Gender:        p.Gender,
			Category:      p.Category,
			ChildCategory: p.ChildCategory,
		})
		if err != nil {
			return errors.Wrapf(err, "product %s", p.ID)
		}
	}

	slog.Info("seeded products", slog.Int("count", len(products)))
	return nil
}

func seedCampaigns(ctx context.Context, repo *repository.CampaignRepository, path string) error {
	var campaigns []campaignJSON
	if err := readJSON(path, &campaigns); err != nil {
		return err
	}

	for _, c := range campaigns {
		err := repo.Create(ctx, &promo.Campaign{
			ID:     c.ID,
			Name:   c.Name,
			Active: c.Active,
			Discount: promo.Discount{
				Kind:  promo.DiscountKind(c.DiscountKind),
				Value: c.DiscountValue,
			},
			Scope: promo.Scope{
				Kind:    promo.ScopeKind(c.ScopeKind),
				Targets: c.ScopeTargets,
			},
			StartsAt: c.StartsAt,
			EndsAt:   c.EndsAt,
		})
		if err != nil {
			return errors.Wrapf(err, "campaign %s", c.ID)
		}
	}

	slog.Info("seeded campaigns", slog.Int("count", len(campaigns)))
	return nil
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository, path string) error {
	var coupons []couponJSON
	if err := readJSON(path, &coupons); err != nil {
		return err
	}

	for _, c := range coupons {
		err := repo.Create(ctx, &coupon.Coupon{
			ID:     c.ID,
			Code:   c.Code,
			Kind:   promo.DiscountKind(c.Kind),
			Value:  c.Value,
			Status: coupon.Status(c.Status),
			Scope: promo.Scope{
				Kind:    promo.ScopeKind(c.ScopeKind),
				Targets: c.ScopeTargets,
			},
			Display:  coupon.Display(c.Display),
			StartsAt: c.StartsAt,
			EndsAt:   c.EndsAt,
		})
		if err != nil {
			return errors.Wrapf(err, "coupon %s", c.Code)
		}
	}

	slog.Info("seeded coupons", slog.Int("count", len(coupons)))
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}
