package chain

// TokenInfo describes an ERC20 token an HTLC can settle instead of the
// chain's native asset: the contract the per-swap HTLC calls transfer on,
// and the decimals quantity rendering divides by.
type TokenInfo struct {
	Symbol   string
	Name     string
	Decimals uint8
	Address  string
	ChainID  uint64
}

// tokenRegistry maps chainID -> symbol -> TokenInfo.
var tokenRegistry = make(map[uint64]map[string]*TokenInfo)

func registerToken(t *TokenInfo) {
	if tokenRegistry[t.ChainID] == nil {
		tokenRegistry[t.ChainID] = make(map[string]*TokenInfo)
	}
	tokenRegistry[t.ChainID][t.Symbol] = t
}

func init() {
	// Ethereum mainnet (1)
	registerToken(&TokenInfo{Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", ChainID: 1})
	registerToken(&TokenInfo{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", ChainID: 1})
	registerToken(&TokenInfo{Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18, Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", ChainID: 1})
	registerToken(&TokenInfo{Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", ChainID: 1})
	registerToken(&TokenInfo{Symbol: "WBTC", Name: "Wrapped Bitcoin", Decimals: 8, Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", ChainID: 1})

	// Arbitrum One (42161)
	registerToken(&TokenInfo{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", ChainID: 42161})
	registerToken(&TokenInfo{Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", ChainID: 42161})
	registerToken(&TokenInfo{Symbol: "WBTC", Name: "Wrapped Bitcoin", Decimals: 8, Address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f", ChainID: 42161})

	// Optimism (10)
	registerToken(&TokenInfo{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", ChainID: 10})
	registerToken(&TokenInfo{Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", ChainID: 10})

	// Base (8453)
	registerToken(&TokenInfo{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", ChainID: 8453})

	// BNB Smart Chain (56); note the 18-decimal bridged stables
	registerToken(&TokenInfo{Symbol: "USDT", Name: "Tether USD", Decimals: 18, Address: "0x55d398326f99059fF775485246999027B3197955", ChainID: 56})
	registerToken(&TokenInfo{Symbol: "USDC", Name: "USD Coin", Decimals: 18, Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", ChainID: 56})

	// Polygon PoS (137)
	registerToken(&TokenInfo{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", ChainID: 137})
	registerToken(&TokenInfo{Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", ChainID: 137})
	registerToken(&TokenInfo{Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", ChainID: 137})

	// Avalanche C-Chain (43114)
	registerToken(&TokenInfo{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", ChainID: 43114})
	registerToken(&TokenInfo{Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", ChainID: 43114})
}

// Token returns the registered token for symbol on chainID, nil if unknown.
func Token(chainID uint64, symbol string) *TokenInfo {
	if tokens, ok := tokenRegistry[chainID]; ok {
		return tokens[symbol]
	}
	return nil
}

// TokenDecimals returns a registered token's decimals, 0 if unknown.
func TokenDecimals(chainID uint64, symbol string) uint8 {
	if t := Token(chainID, symbol); t != nil {
		return t.Decimals
	}
	return 0
}

// ListTokens returns every token registered on chainID.
func ListTokens(chainID uint64) []*TokenInfo {
	tokens, ok := tokenRegistry[chainID]
	if !ok {
		return nil
	}
	out := make([]*TokenInfo, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t)
	}
	return out
}
