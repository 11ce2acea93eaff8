package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// securityChunkSize bounds IN-lists when prefetching large ticker sets.
const securityChunkSize = 50

type SecurityStore struct {
	db *sqlx.DB
}

var _ interfaces.SecurityStorage = (*SecurityStore)(nil)

func NewSecurityStore(db *sqlx.DB) *SecurityStore {
	return &SecurityStore{db: db}
}

// GetByTickers returns securities keyed by ticker, querying in chunks.
func (s *SecurityStore) GetByTickers(ctx context.Context, tickers []string) (map[string]models.Security, error) {
	out := make(map[string]models.Security, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	for start := 0; start < len(tickers); start += securityChunkSize {
		end := start + securityChunkSize
		if end > len(tickers) {
			end = len(tickers)
		}
		if err := s.fetchChunk(ctx, tickers[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SecurityStore) fetchChunk(ctx context.Context, tickers []string, out map[string]models.Security) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rows []models.Security
	err := s.db.SelectContext(ctx, &rows, `
		SELECT ticker, company, sector, is_etf
		FROM securities
		WHERE ticker = ANY($1)`, pq.StringArray(tickers))
	if err != nil {
		return fmt.Errorf("failed to load securities: %w", err)
	}

	for _, sec := range rows {
		out[sec.Ticker] = sec
	}
	return nil
}
