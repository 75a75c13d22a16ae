// Package source provides the three fund record tiers (primary Postgres,
// secondary HTTP gateway, embedded static snapshot) and the change
// notification channel.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundweb/fundsync/internal/domain"
)

// ErrNotFound indicates that the requested fund does not exist upstream.
var ErrNotFound = errors.New("fund not found")

// ErrUnauthorized indicates an authorization-class failure on the
// primary store, which routes the loader to the secondary tier.
var ErrUnauthorized = errors.New("primary source authorization failed")

const fundColumns = `
	f.id, f.fund_name, COALESCE(f.slug, ''), COALESCE(f.manager_name, ''),
	COALESCE(f.description, ''), COALESCE(f.strategy, ''),
	f.return_target_min, f.return_target_max,
	f.management_fee, f.performance_fee, f.min_investment, f.aum_usd,
	COALESCE(f.currency, ''), f.tags, f.team, f.documents, f.geo_allocation,
	COALESCE(f.website_url, ''), f.is_verified, f.created_at, f.updated_at,
	r.final_rank`

// Primary reads fund records and the edit log from PostgreSQL.
type Primary struct {
	pool *pgxpool.Pool
}

// NewPrimary creates the primary record source.
func NewPrimary(pool *pgxpool.Pool) *Primary {
	return &Primary{pool: pool}
}

// QueryAllFunds returns every fund with its rank in one combined query.
func (p *Primary) QueryAllFunds(ctx context.Context) ([]domain.RawRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT`+fundColumns+`
		FROM funds f
		LEFT JOIN fund_rankings r ON r.fund_id = f.id`)
	if err != nil {
		return nil, classify(fmt.Errorf("querying funds: %w", err))
	}
	defer rows.Close()

	var records []domain.RawRecord
	for rows.Next() {
		rec, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fund row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating funds: %w", err))
	}
	return records, nil
}

// QueryFundByID returns a single fund with its rank.
func (p *Primary) QueryFundByID(ctx context.Context, id string) (domain.RawRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT`+fundColumns+`
		FROM funds f
		LEFT JOIN fund_rankings r ON r.fund_id = f.id
		WHERE f.id = $1`, id)
	if err != nil {
		return domain.RawRecord{}, classify(fmt.Errorf("querying fund %s: %w", id, err))
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.RawRecord{}, classify(fmt.Errorf("querying fund %s: %w", id, err))
		}
		return domain.RawRecord{}, ErrNotFound
	}
	rec, err := scanFund(rows)
	if err != nil {
		return domain.RawRecord{}, fmt.Errorf("scanning fund %s: %w", id, err)
	}
	return rec, nil
}

// QueryEditLog returns the full approved-edit log ordered by application
// time. The log is replayed in full on every merge.
func (p *Primary) QueryEditLog(ctx context.Context) ([]domain.EditEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT target_id, changes, applied_at
		FROM fund_edits
		ORDER BY applied_at ASC, id ASC`)
	if err != nil {
		return nil, classify(fmt.Errorf("querying edit log: %w", err))
	}
	defer rows.Close()

	var events []domain.EditEvent
	for rows.Next() {
		var ev domain.EditEvent
		var changes []byte
		if err := rows.Scan(&ev.TargetID, &changes, &ev.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning edit event: %w", err)
		}
		if err := json.Unmarshal(changes, &ev.Changes); err != nil {
			return nil, fmt.Errorf("parsing edit changes for %s: %w", ev.TargetID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating edit log: %w", err))
	}
	return events, nil
}

func scanFund(rows pgx.Rows) (domain.RawRecord, error) {
	var rec domain.RawRecord
	var tags, team, documents, geo []byte
	var finalRank *int

	err := rows.Scan(
		&rec.ID, &rec.FundName, &rec.Slug, &rec.ManagerName,
		&rec.Description, &rec.Strategy,
		&rec.ReturnMin, &rec.ReturnMax,
		&rec.ManagementFee, &rec.PerformanceFee, &rec.MinInvestment, &rec.AUM,
		&rec.Currency, &tags, &team, &documents, &geo,
		&rec.Website, &rec.IsVerified, &rec.CreatedAt, &rec.UpdatedAt,
		&finalRank,
	)
	if err != nil {
		return domain.RawRecord{}, err
	}

	rec.Tags = json.RawMessage(tags)
	rec.Team = json.RawMessage(team)
	rec.Documents = json.RawMessage(documents)
	rec.GeoAllocation = json.RawMessage(geo)
	if finalRank != nil {
		rec.Ranking = &domain.RawRanking{FinalRank: finalRank}
	}
	return rec, nil
}

// classify wraps authorization-class Postgres failures with
// ErrUnauthorized so the loader can route to the secondary tier.
// 42501 = insufficient_privilege, 28000/28P01 = auth failures.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501", "28000", "28P01":
			return fmt.Errorf("%w: %s", ErrUnauthorized, pgErr.Message)
		}
	}
	return err
}
