package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/prospectus/internal/analyzer"
	"github.com/ternarybob/prospectus/internal/models"
)

type fakePoliticianStore struct {
	byAlias map[string]*models.Politician
}

func (f *fakePoliticianStore) FindByName(_ context.Context, name string) (*models.Politician, error) {
	return f.byAlias[name], nil
}

func (f *fakePoliticianStore) Committees(context.Context, int64) ([]models.Committee, error) {
	return nil, nil
}

func TestParseTradeDateFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-08-20", "2026-08-20"},
		{"2026-08-20T14:30:00", "2026-08-20"},
		{"2026-08-20T14:30:00Z", "2026-08-20"},
		{"08/20/2026", "2026-08-20"},
		{"Aug 20, 2026", "2026-08-20"},
		{"August 20, 2026", "2026-08-20"},
		{" 2026-08-20 ", "2026-08-20"},
	}
	for _, tt := range tests {
		got, err := parseTradeDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), tt.in)
	}

	_, err := parseTradeDate("20th of August")
	assert.Error(t, err)
}

func TestNormalizeTradeFields(t *testing.T) {
	assert.Equal(t, models.TradePurchase, normalizeTradeType("Purchase"))
	assert.Equal(t, models.TradePurchase, normalizeTradeType("partial buy"))
	assert.Equal(t, models.TradeSale, normalizeTradeType("Sale (Full)"))
	assert.Equal(t, models.TradeSale, normalizeTradeType("sell"))
	assert.Equal(t, models.TradeExchange, normalizeTradeType("Exchange"))
	assert.Equal(t, models.TradeExchange, normalizeTradeType("Options Exercise"))
	assert.Equal(t, models.TradeExchange, normalizeTradeType(""))

	assert.Equal(t, models.OwnerSelf, normalizeOwner("Self"))
	assert.Equal(t, models.OwnerSpouse, normalizeOwner("spouse"))
	assert.Equal(t, models.OwnerDependent, normalizeOwner("Child"))
	assert.Equal(t, models.OwnerUnknown, normalizeOwner(""))
	assert.Equal(t, models.OwnerUnknown, normalizeOwner("joint"))

	assert.Equal(t, models.AssetCrypto, normalizeAssetType("Cryptocurrency"))
	assert.Equal(t, models.AssetStock, normalizeAssetType("Stock"))
	assert.Equal(t, models.AssetStock, normalizeAssetType(""))
}

func TestBuildTradeResolvesCanonicalIdentity(t *testing.T) {
	politicians := &fakePoliticianStore{byAlias: map[string]*models.Politician{
		"N. Pelosi": {
			ID:            42,
			CanonicalName: "Nancy Pelosi",
			Party:         "D",
			State:         "CA",
			Chamber:       models.ChamberHouse,
		},
	}}

	trade, err := buildTrade(context.Background(), politicians, &models.DisclosedTrade{
		Representative:  "N. Pelosi",
		Ticker:          "nvda",
		Company:         "NVIDIA Corp",
		Chamber:         models.ChamberHouse,
		Owner:           "Spouse",
		TransactionDate: "2026-08-18",
		DisclosureDate:  "2026-08-20",
		Type:            "Purchase",
		Amount:          "$1,000,001 - $5,000,000",
		AssetType:       "Stock",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), trade.PoliticianID)
	assert.Equal(t, "Nancy Pelosi", trade.PoliticianName)
	assert.Equal(t, "NVDA", trade.Ticker)
	assert.Equal(t, "D", trade.Party)
	assert.Equal(t, "CA", trade.State)
	assert.Equal(t, models.OwnerSpouse, trade.Owner)
	assert.Equal(t, models.TradePurchase, trade.Type)
}

func TestBuildTradeUnknownPoliticianKeepsDisclosedName(t *testing.T) {
	politicians := &fakePoliticianStore{byAlias: map[string]*models.Politician{}}

	trade, err := buildTrade(context.Background(), politicians, &models.DisclosedTrade{
		Representative:  "Someone New",
		Ticker:          "AAPL",
		Chamber:         models.ChamberSenate,
		TransactionDate: "2026-08-19",
		DisclosureDate:  "2026-08-21",
		Type:            "Sale",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), trade.PoliticianID)
	assert.Equal(t, "Someone New", trade.PoliticianName)
}

func TestBuildTradeRejectsIncompleteDisclosures(t *testing.T) {
	politicians := &fakePoliticianStore{}

	_, err := buildTrade(context.Background(), politicians, &models.DisclosedTrade{
		Ticker:          "AAPL",
		TransactionDate: "2026-08-19",
	})
	assert.Error(t, err)

	_, err = buildTrade(context.Background(), politicians, &models.DisclosedTrade{
		Representative:  "Someone",
		Ticker:          "AAPL",
		TransactionDate: "not a date",
	})
	assert.Error(t, err)
}

func TestBuildTradeExchangeDisclosureAutoFilters(t *testing.T) {
	politicians := &fakePoliticianStore{}

	trade, err := buildTrade(context.Background(), politicians, &models.DisclosedTrade{
		Representative:  "Someone",
		Ticker:          "NVDA",
		Company:         "NVIDIA Corp",
		Chamber:         models.ChamberHouse,
		TransactionDate: "2026-08-19",
		DisclosureDate:  "2026-08-21",
		Type:            "Exchange",
	})
	require.NoError(t, err)

	// An exchange is not a directional trade: it must reach the analyzer as
	// such and score 0.0 without a model call.
	assert.Equal(t, models.TradeExchange, trade.Type)
	assert.Equal(t, "non-investment transaction type", analyzer.LowRiskReason(trade))
}

func TestBuildTradeFallsBackToTransactionDate(t *testing.T) {
	politicians := &fakePoliticianStore{}

	trade, err := buildTrade(context.Background(), politicians, &models.DisclosedTrade{
		Representative:  "Someone",
		Ticker:          "AAPL",
		TransactionDate: "2026-08-19",
		DisclosureDate:  "garbage",
		Type:            "Purchase",
	})
	require.NoError(t, err)
	assert.Equal(t, trade.TransactionDate, trade.DisclosureDate)
	assert.Equal(t, time.August, trade.TransactionDate.Month())
}
