package ledger

import (
	"math/big"

	"github.com/comit-swap/rfc003/internal/chain"
	"github.com/comit-swap/rfc003/pkg/helpers"
)

// RegisterEVMChains registers an Ethereum-family Ledger binding for every
// EVM chain already described in internal/chain's registry (Ethereum,
// BSC, Polygon, Arbitrum, Optimism, Base, Avalanche, ...): any registered
// EVM chain is a valid alpha or beta ledger.
//
// Symbols are registered under the chain's own ticker (so "BSC", "POLYGON",
// etc. are all independently addressable), not only "ETH" — a swap pair is
// free to name any two of them as long as they are not the same symbol.
func RegisterEVMChains(network chain.Network) {
	for _, symbol := range chain.ListByFamily(chain.FamilyEVM) {
		params, ok := chain.Get(symbol, network)
		if !ok || params.ChainID == 0 {
			continue
		}
		Register(NewEVMLedger(new(big.Int).SetUint64(params.ChainID), evmSymbol(symbol)))
	}
}

// RegisterBitcoin registers l, the Bitcoin ledger binding, under the
// canonical "BTC" symbol.
func RegisterBitcoin(l Ledger) {
	Register(l)
}

// evmSymbol turns a chain ticker into the Symbol type this package's
// registry is keyed by. Ethereum itself keeps the pre-existing
// SymbolEthereum ("ETH") constant so lookups written against it before this
// registry existed keep working.
func evmSymbol(tickerSymbol string) Symbol {
	if tickerSymbol == "ETH" {
		return SymbolEthereum
	}
	return Symbol(tickerSymbol)
}

// TokenAddress looks up an ERC20 contract address for symbol on chainID,
// backing the ERC20 HTLC variant's token sub-registry. It delegates to
// internal/chain's token registry rather than duplicating it.
func TokenAddress(chainID uint64, symbol string) (string, bool) {
	t := chain.Token(chainID, symbol)
	if t == nil {
		return "", false
	}
	return t.Address, true
}

// TokenDecimals returns the decimals of an ERC20 token registered for
// chainID, 0 if unknown.
func TokenDecimals(chainID uint64, symbol string) uint8 {
	return chain.TokenDecimals(chainID, symbol)
}

// FormatTokenAmount renders a smallest-unit ERC20 amount using the token's
// registered decimals, e.g. 1_500_000 USDC on mainnet -> "1.5".
func FormatTokenAmount(chainID uint64, symbol string, amount uint64) string {
	return helpers.FormatAmount(amount, chain.TokenDecimals(chainID, symbol))
}

// ParseTokenAmount parses a decimal token amount string into smallest units
// using the token's registered decimals.
func ParseTokenAmount(chainID uint64, symbol string, s string) (uint64, error) {
	return helpers.ParseAmount(s, chain.TokenDecimals(chainID, symbol))
}
