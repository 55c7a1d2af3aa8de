package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/northmill/storefront/internal/domain/promo"
)

const (
	campaignColumns = `id, name, active, discount_kind, discount_value, scope_kind, scope_targets, starts_at, ends_at, created_at, updated_at`

	listActiveCampaignsSQL = `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE active AND starts_at <= $1 AND ends_at >= $1 ORDER BY created_at`

	listCampaignsSQL = `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at`

	getCampaignByIDSQL = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	createCampaignSQL = `INSERT INTO campaigns (id, name, active, discount_kind, discount_value, scope_kind, scope_targets, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateCampaignSQL = `UPDATE campaigns
		SET name = $2, active = $3, discount_kind = $4, discount_value = $5,
			scope_kind = $6, scope_targets = $7, starts_at = $8, ends_at = $9, updated_at = now()
		WHERE id = $1`

	deleteCampaignSQL = `DELETE FROM campaigns WHERE id = $1`
)

var _ promo.Repository = (*CampaignRepository)(nil)

// CampaignRepository implements promo.Repository backed by PostgreSQL.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository returns a CampaignRepository that uses the given pool.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// ListActive returns campaigns that are switched on and whose window contains
// the given instant, oldest first. The ordering makes tie-breaking between
// equal discounts deterministic.
func (r *CampaignRepository) ListActive(ctx context.Context, now time.Time) ([]promo.Campaign, error) {
	rows, err := r.pool.Query(ctx, listActiveCampaignsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active campaigns: %w", err)
	}
	return pgx.CollectRows(rows, scanCampaign)
}

// List returns all campaigns, oldest first.
func (r *CampaignRepository) List(ctx context.Context) ([]promo.Campaign, error) {
	rows, err := r.pool.Query(ctx, listCampaignsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	return pgx.CollectRows(rows, scanCampaign)
}

// GetByID returns a single campaign by its identifier.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*promo.Campaign, error) {
	rows, err := r.pool.Query(ctx, getCampaignByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting campaign %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCampaign)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("getting campaign %q: %w", id, err)
	}
	return &c, nil
}

// Create persists a new campaign.
func (r *CampaignRepository) Create(ctx context.Context, c *promo.Campaign) error {
	_, err := r.pool.Exec(ctx, createCampaignSQL,
		c.ID, c.Name, c.Active, c.Discount.Kind, c.Discount.Value,
		c.Scope.Kind, c.Scope.Targets, c.StartsAt, c.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("creating campaign %q: %w", c.ID, err)
	}
	return nil
}

// Update replaces a campaign's attributes.
func (r *CampaignRepository) Update(ctx context.Context, c *promo.Campaign) error {
	tag, err := r.pool.Exec(ctx, updateCampaignSQL,
		c.ID, c.Name, c.Active, c.Discount.Kind, c.Discount.Value,
		c.Scope.Kind, c.Scope.Targets, c.StartsAt, c.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("updating campaign %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrNotFound
	}
	return nil
}

// Delete removes a campaign.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCampaignSQL, id)
	if err != nil {
		return fmt.Errorf("deleting campaign %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrNotFound
	}
	return nil
}

func scanCampaign(row pgx.CollectableRow) (promo.Campaign, error) {
	var (
		c       promo.Campaign
		kind    string
		scope   string
		targets []string
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Active, &kind, &c.Discount.Value,
		&scope, &targets, &c.StartsAt, &c.EndsAt, &c.CreatedAt, &c.UpdatedAt,
	)
	c.Discount.Kind = promo.DiscountKind(kind)
	c.Scope = promo.Scope{Kind: promo.ScopeKind(scope), Targets: targets}
	return c, err
}
