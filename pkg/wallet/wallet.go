// Package wallet serves wallet balance and holdings lookups plus the static
// institutional discovery tables.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is one address's native balance with a USD valuation.
type Balance struct {
	Address  string          `json:"address"`
	Label    string          `json:"label,omitempty"`
	Category string          `json:"category,omitempty"`
	Symbol   string          `json:"symbol"`
	Amount   decimal.Decimal `json:"amount"`
	ValueUSD decimal.Decimal `json:"value_usd"`
	Live     bool            `json:"live"`
	Reason   string          `json:"reason,omitempty"`
	AsOf     time.Time       `json:"as_of"`
}

// Holding is one token position in a wallet or fund.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	PriceUSD decimal.Decimal `json:"price_usd"`
	ValueUSD decimal.Decimal `json:"value_usd"`
}

// Holdings is one address's token positions.
type Holdings struct {
	Address  string          `json:"address"`
	Label    string          `json:"label,omitempty"`
	Holdings []Holding       `json:"holdings"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	Live     bool            `json:"live"`
	Reason   string          `json:"reason,omitempty"`
	AsOf     time.Time       `json:"as_of"`
}

// FundHoldings is an institutional fund's disclosed position table.
type FundHoldings struct {
	Fund     string          `json:"fund"`
	Holdings []Holding       `json:"holdings"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	AsOf     time.Time       `json:"as_of"`
}

// knownWallet is one entry in the static discovery table.
type knownWallet struct {
	Label    string
	Category string
}

// knownWallets labels addresses of interest. Keys are lowercased hex.
var knownWallets = map[string]knownWallet{
	"0xbe0eb53f46cd790cd13851d5eff43d12404d33e8": {Label: "Binance Cold Wallet", Category: "exchange"},
	"0x47ac0fb4f2d84898e4d9e7b4dab3c24507a6d503": {Label: "Binance Cold Wallet 2", Category: "exchange"},
	"0x742d35cc6634c0532925a3b844bc454e4438f44e": {Label: "Bitfinex Cold Wallet", Category: "exchange"},
	"0x00000000219ab540356cbb839cbe05303d7705fa": {Label: "Beacon Deposit Contract", Category: "protocol"},
	"0x220866b1a2219f40e72f5c628b65d54268ca3a9d": {Label: "Vitalik Buterin", Category: "individual"},
}

// token prices are static quotes used to value mock positions.
var tokenPrices = map[string]struct {
	Name  string
	Price decimal.Decimal
}{
	"ETH":  {Name: "Ethereum", Price: decimal.NewFromInt(3200)},
	"BTC":  {Name: "Bitcoin", Price: decimal.NewFromInt(96000)},
	"USDT": {Name: "Tether", Price: decimal.NewFromInt(1)},
	"USDC": {Name: "USD Coin", Price: decimal.NewFromInt(1)},
	"LINK": {Name: "Chainlink", Price: decimal.NewFromInt(22)},
	"UNI":  {Name: "Uniswap", Price: decimal.NewFromInt(12)},
}

// blackrockHoldings is the static disclosure table for the fund endpoint.
var blackrockHoldings = []Holding{
	newHolding("BTC", decimal.RequireFromString("357509.22")),
	newHolding("ETH", decimal.RequireFromString("1129316.47")),
	newHolding("USDC", decimal.RequireFromString("25000000")),
}

func newHolding(symbol string, amount decimal.Decimal) Holding {
	quote := tokenPrices[symbol]
	return Holding{
		Symbol:   symbol,
		Name:     quote.Name,
		Amount:   amount,
		PriceUSD: quote.Price,
		ValueUSD: amount.Mul(quote.Price),
	}
}

func sumHoldings(holdings []Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.ValueUSD)
	}
	return total
}
