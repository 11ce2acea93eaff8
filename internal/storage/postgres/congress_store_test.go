package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

func TestCongressStoreUpsertTradeReportsCreated(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCongressStore(db)

	trade := &models.CongressTrade{
		PoliticianID:    12,
		PoliticianName:  "Jane Example",
		Ticker:          "NVDA",
		Chamber:         models.ChamberHouse,
		Owner:           models.OwnerSelf,
		TransactionDate: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		DisclosureDate:  time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Type:            models.TradePurchase,
		Amount:          "$15,001 - $50,000",
		AssetType:       models.AssetStock,
	}

	mock.ExpectQuery(`INSERT INTO congress_trades`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(int64(77), true))

	id, created, err := store.UpsertTrade(context.Background(), trade)
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.True(t, created)
	assert.Equal(t, int64(77), trade.ID)

	// Second disclosure of the same trade updates instead of inserting.
	mock.ExpectQuery(`INSERT INTO congress_trades`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(int64(77), false))

	_, created, err = store.UpsertTrade(context.Background(), trade)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCongressStoreTradesAfterCursor(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCongressStore(db)

	cols := []string{
		"id", "politician_id", "politician_name", "ticker", "company", "sector",
		"chamber", "party", "state", "owner", "transaction_date", "disclosure_date",
		"type", "amount", "price", "asset_type", "notes", "conflict_score",
	}
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("nil cursor starts at the top", func(t *testing.T) {
		mock.ExpectQuery(`ORDER BY transaction_date DESC, id DESC`).
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(int64(9), int64(1), "Jane Example", "NVDA", "", "", "House", "", "",
					"Self", day, day, "Purchase", "$1,001 - $15,000", nil, "Stock", "", nil))

		trades, err := store.TradesAfterCursor(context.Background(), nil, 50)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, int64(9), trades[0].ID)
	})

	t.Run("cursor applies tuple comparison", func(t *testing.T) {
		cursor := &interfaces.TradeCursor{TransactionDate: day, ID: 9}
		mock.ExpectQuery(`WHERE \(transaction_date, id\) < \(\$1, \$2\)`).
			WithArgs(cursor.TransactionDate, cursor.ID, 50).
			WillReturnRows(sqlmock.NewRows(cols))

		trades, err := store.TradesAfterCursor(context.Background(), cursor, 50)
		require.NoError(t, err)
		assert.Empty(t, trades)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCongressStoreSaveAnalysisMirrorsScore(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCongressStore(db)

	analysis := &models.TradeAnalysis{
		TradeID:         77,
		ModelUsed:       "analysis-model",
		AnalysisVersion: "v2",
		ConflictScore:   0.85,
		ConfidenceScore: 0.9,
		RiskPattern:     models.RiskConflictBuy,
		Reasoning:       "Committee oversees the issuer's sector",
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO trade_analyses`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE congress_trades SET conflict_score`).
		WithArgs(int64(77), 0.85).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveAnalysis(context.Background(), analysis))
	assert.False(t, analysis.AnalyzedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
