package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// FundStore exposes production-fund holdings from the meta store. The owned
// set drives the article relevance boost and the ticker-research job.
type FundStore struct {
	db *sqlx.DB
}

var _ interfaces.FundStorage = (*FundStore)(nil)

func NewFundStore(db *sqlx.DB) *FundStore {
	return &FundStore{db: db}
}

// OwnedTickers returns ticker → sector for every active position in a
// production fund. Sector comes from the securities table when available.
func (s *FundStore) OwnedTickers(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	type row struct {
		Ticker string `db:"ticker"`
		Sector string `db:"sector"`
	}

	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT p.ticker, COALESCE(sec.sector, '') AS sector
		FROM positions p
		JOIN funds f ON f.id = p.fund_id
		LEFT JOIN securities sec ON sec.ticker = p.ticker
		WHERE f.is_production AND p.active`)
	if err != nil {
		return nil, fmt.Errorf("failed to load owned tickers: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Ticker] = r.Sector
	}
	return out, nil
}

// ActivePositions returns distinct (ticker, company) pairs across production funds.
func (s *FundStore) ActivePositions(ctx context.Context) ([]models.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var positions []models.Position
	err := s.db.SelectContext(ctx, &positions, `
		SELECT DISTINCT ON (p.ticker) p.fund_id, p.ticker, p.company, p.active
		FROM positions p
		JOIN funds f ON f.id = p.fund_id
		WHERE f.is_production AND p.active
		ORDER BY p.ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to load active positions: %w", err)
	}
	return positions, nil
}
