package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/errors"
)

const (
	binanceCold = "0xBE0eB53F46cd790Cd13851d5EFf43D12404d33E8"
	plainWallet = "0x1111111111111111111111111111111111111111"
)

type stubBalanceFetcher struct {
	amount decimal.Decimal
}

func (f *stubBalanceFetcher) FetchBalance(context.Context, string) (decimal.Decimal, error) {
	return f.amount, nil
}

func newDegradedService() *walletService {
	svc := newService(&unavailableChainFetcher{}, &unavailableChainFetcher{}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestBalanceRejectsInvalidAddress(t *testing.T) {
	svc := newDegradedService()

	for _, bad := range []string{"", "not-hex", "0x123", "0xZZ0eB53F46cd790Cd13851d5EFf43D12404d33E8"} {
		_, err := svc.Balance(context.Background(), bad)
		if !apperrors.Is(err, apperrors.CategoryDataError) {
			t.Fatalf("Balance(%q) error = %v, want data error", bad, err)
		}
	}
}

func TestBalanceFallbackIsDeterministic(t *testing.T) {
	svc := newDegradedService()
	ctx := context.Background()

	first, err := svc.Balance(ctx, plainWallet)
	if err != nil {
		t.Fatalf("Balance() failed: %v", err)
	}
	if first.Live {
		t.Fatalf("expected degraded lookup")
	}
	if first.Reason == "" {
		t.Fatalf("expected degradation reason")
	}

	second, err := svc.Balance(ctx, plainWallet)
	if err != nil {
		t.Fatalf("Balance() failed: %v", err)
	}
	if !first.Amount.Equal(second.Amount) {
		t.Fatalf("mock balance unstable: %s != %s", first.Amount, second.Amount)
	}

	wantValue := first.Amount.Mul(tokenPrices["ETH"].Price)
	if !first.ValueUSD.Equal(wantValue) {
		t.Fatalf("value = %s, want %s", first.ValueUSD, wantValue)
	}
}

func TestBalanceLiveFetcherAndDiscoveryLabel(t *testing.T) {
	svc := newService(&stubBalanceFetcher{amount: decimal.RequireFromString("12.5")}, &unavailableChainFetcher{}, zap.NewNop())

	balance, err := svc.Balance(context.Background(), binanceCold)
	if err != nil {
		t.Fatalf("Balance() failed: %v", err)
	}
	if !balance.Live {
		t.Fatalf("expected live lookup")
	}
	if !balance.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("amount = %s, want 12.5", balance.Amount)
	}
	if balance.Label != "Binance Cold Wallet" || balance.Category != "exchange" {
		t.Fatalf("discovery label = %q/%q, want Binance Cold Wallet/exchange", balance.Label, balance.Category)
	}
	// mixed-case input normalizes to checksum form
	if balance.Address != binanceCold {
		t.Fatalf("address = %q, want checksummed %q", balance.Address, binanceCold)
	}
}

func TestHoldingsFallback(t *testing.T) {
	svc := newDegradedService()

	holdings, err := svc.Holdings(context.Background(), plainWallet)
	if err != nil {
		t.Fatalf("Holdings() failed: %v", err)
	}
	if holdings.Live {
		t.Fatalf("expected degraded lookup")
	}
	if len(holdings.Holdings) == 0 {
		t.Fatalf("expected mock positions")
	}

	total := decimal.Zero
	for i, h := range holdings.Holdings {
		if !h.ValueUSD.Equal(h.Amount.Mul(h.PriceUSD)) {
			t.Fatalf("holding %d value mismatch: %s != %s * %s", i, h.ValueUSD, h.Amount, h.PriceUSD)
		}
		total = total.Add(h.ValueUSD)
		if i > 0 && h.ValueUSD.GreaterThan(holdings.Holdings[i-1].ValueUSD) {
			t.Fatalf("holdings not sorted by value")
		}
	}
	if !holdings.TotalUSD.Equal(total) {
		t.Fatalf("total = %s, want %s", holdings.TotalUSD, total)
	}
}

func TestBlackrockHoldings(t *testing.T) {
	svc := newDegradedService()

	fund, err := svc.BlackrockHoldings(context.Background())
	if err != nil {
		t.Fatalf("BlackrockHoldings() failed: %v", err)
	}
	if fund.Fund != "blackrock" {
		t.Fatalf("fund = %q, want blackrock", fund.Fund)
	}
	if len(fund.Holdings) != len(blackrockHoldings) {
		t.Fatalf("len = %d, want %d", len(fund.Holdings), len(blackrockHoldings))
	}
	if !fund.TotalUSD.Equal(sumHoldings(blackrockHoldings)) {
		t.Fatalf("total = %s, want %s", fund.TotalUSD, sumHoldings(blackrockHoldings))
	}
}

func TestHTTPEndpoints(t *testing.T) {
	svc := newDegradedService()
	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet/"+plainWallet+"/balance", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("balance status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var balance Balance
	if err := json.Unmarshal(rec.Body.Bytes(), &balance); err != nil {
		t.Fatalf("failed to decode balance: %v", err)
	}
	if balance.Live {
		t.Fatalf("expected degraded flag in payload")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet/nothex/balance", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid address status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blackrock/holdings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("blackrock status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}
