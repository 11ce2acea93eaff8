// -----------------------------------------------------------------------
// Congress Store - disclosed trades, AI analyses and trade sessions
// -----------------------------------------------------------------------

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

type CongressStore struct {
	db *sqlx.DB
}

var _ interfaces.CongressStorage = (*CongressStore)(nil)

func NewCongressStore(db *sqlx.DB) *CongressStore {
	return &CongressStore{db: db}
}

const tradeColumns = `id, politician_id, politician_name, ticker, company, sector, chamber,
	party, state, owner, transaction_date, disclosure_date, type, amount,
	price, asset_type, notes, conflict_score`

// UpsertTrade inserts or updates on the disclosure uniqueness key. Returns
// the row id and whether a new row was created.
func (s *CongressStore) UpsertTrade(ctx context.Context, trade *models.CongressTrade) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		id      int64
		created bool
	)
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO congress_trades (
			politician_id, politician_name, ticker, company, sector, chamber,
			party, state, owner, transaction_date, disclosure_date, type,
			amount, price, asset_type, notes, conflict_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (politician_id, ticker, transaction_date, amount, type, owner) DO UPDATE SET
			disclosure_date = EXCLUDED.disclosure_date,
			company = EXCLUDED.company,
			sector = EXCLUDED.sector,
			notes = EXCLUDED.notes,
			price = COALESCE(EXCLUDED.price, congress_trades.price)
		RETURNING id, (xmax = 0) AS created`,
		trade.PoliticianID, trade.PoliticianName, trade.Ticker, trade.Company,
		trade.Sector, trade.Chamber, trade.Party, trade.State, trade.Owner,
		trade.TransactionDate, trade.DisclosureDate, trade.Type, trade.Amount,
		trade.Price, trade.AssetType, trade.Notes, trade.ConflictScore,
	).Scan(&id, &created)
	if err != nil {
		return 0, false, fmt.Errorf("failed to upsert trade: %w", err)
	}

	trade.ID = id
	return id, created, nil
}

// TradesNeedingAnalysis returns trades with no conflict score yet, oldest first.
func (s *CongressStore) TradesNeedingAnalysis(ctx context.Context, limit int) ([]models.CongressTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var trades []models.CongressTrade
	err := s.db.SelectContext(ctx, &trades, fmt.Sprintf(`
		SELECT %s FROM congress_trades
		WHERE conflict_score IS NULL
		ORDER BY transaction_date ASC, id ASC
		LIMIT $1`, tradeColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades needing analysis: %w", err)
	}
	return trades, nil
}

// TradesAfterCursor pages through all trades in (transaction_date desc,
// id desc) order. A nil cursor starts at the top. The tuple comparison keeps
// pagination stable while new trades arrive at the head.
func (s *CongressStore) TradesAfterCursor(ctx context.Context, cursor *interfaces.TradeCursor, limit int) ([]models.CongressTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		trades []models.CongressTrade
		err    error
	)
	if cursor == nil {
		err = s.db.SelectContext(ctx, &trades, fmt.Sprintf(`
			SELECT %s FROM congress_trades
			ORDER BY transaction_date DESC, id DESC
			LIMIT $1`, tradeColumns), limit)
	} else {
		err = s.db.SelectContext(ctx, &trades, fmt.Sprintf(`
			SELECT %s FROM congress_trades
			WHERE (transaction_date, id) < ($1, $2)
			ORDER BY transaction_date DESC, id DESC
			LIMIT $3`, tradeColumns), cursor.TransactionDate, cursor.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to page trades: %w", err)
	}
	return trades, nil
}

// SaveAnalysis upserts on (trade_id, model_used, analysis_version) and
// mirrors the conflict score onto the trade row in one transaction.
func (s *CongressStore) SaveAnalysis(ctx context.Context, analysis *models.TradeAnalysis) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if analysis.AnalyzedAt.IsZero() {
		analysis.AnalyzedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin analysis transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trade_analyses (
			trade_id, model_used, analysis_version, conflict_score,
			confidence_score, risk_pattern, reasoning, session_id, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (trade_id, model_used, analysis_version) DO UPDATE SET
			conflict_score = EXCLUDED.conflict_score,
			confidence_score = EXCLUDED.confidence_score,
			risk_pattern = EXCLUDED.risk_pattern,
			reasoning = EXCLUDED.reasoning,
			session_id = EXCLUDED.session_id,
			analyzed_at = EXCLUDED.analyzed_at`,
		analysis.TradeID, analysis.ModelUsed, analysis.AnalysisVersion,
		analysis.ConflictScore, analysis.ConfidenceScore, analysis.RiskPattern,
		analysis.Reasoning, analysis.SessionID, analysis.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("failed to save trade analysis: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE congress_trades SET conflict_score = $2 WHERE id = $1`,
		analysis.TradeID, analysis.ConflictScore)
	if err != nil {
		return fmt.Errorf("failed to mirror conflict score: %w", err)
	}

	return tx.Commit()
}

// SessionsNeedingAnalysis returns sessions flagged for AI analysis.
func (s *CongressStore) SessionsNeedingAnalysis(ctx context.Context, limit int) ([]models.TradeSession, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sessions []models.TradeSession
	err := s.db.SelectContext(ctx, &sessions, `
		SELECT id, politician_name, start_date, end_date, trade_count,
		       conflict_score, confidence_score, ai_summary, risk_pattern,
		       model_used, needs_ai_analysis
		FROM trade_sessions
		WHERE needs_ai_analysis
		ORDER BY start_date ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions needing analysis: %w", err)
	}
	return sessions, nil
}

// TradesForSession returns a session's trades in transaction-date order.
func (s *CongressStore) TradesForSession(ctx context.Context, sessionID string) ([]models.CongressTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var trades []models.CongressTrade
	err := s.db.SelectContext(ctx, &trades, fmt.Sprintf(`
		SELECT %s FROM congress_trades
		WHERE id IN (SELECT trade_id FROM trade_analyses WHERE session_id = $1)
		ORDER BY transaction_date ASC`, tradeColumns), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session trades: %w", err)
	}
	return trades, nil
}

// UpdateSessionAnalysis stores the session verdict and clears the flag.
func (s *CongressStore) UpdateSessionAnalysis(ctx context.Context, session *models.TradeSession) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE trade_sessions SET
			conflict_score = $2,
			confidence_score = $3,
			ai_summary = $4,
			risk_pattern = $5,
			model_used = $6,
			needs_ai_analysis = FALSE
		WHERE id = $1`,
		session.ID, session.ConflictScore, session.ConfidenceScore,
		session.AISummary, session.RiskPattern, session.ModelUsed)
	if err != nil {
		return fmt.Errorf("failed to update session analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", session.ID)
	}
	return nil
}
