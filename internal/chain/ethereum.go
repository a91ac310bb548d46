package chain

// evm is a shorthand for the fields every EVM entry shares.
func evm(symbol, name, native string, chainID uint64) *Params {
	return &Params{
		Symbol:      symbol,
		Name:        name,
		Family:      FamilyEVM,
		Decimals:    18,
		CoinType:    60,
		ChainID:     chainID,
		NativeToken: native,
	}
}

func init() {
	// Ethereum
	Register("ETH", Mainnet, evm("ETH", "Ethereum", "ETH", 1))
	Register("ETH", Testnet, evm("ETH", "Ethereum Sepolia", "ETH", 11155111))
	// Local dev chain (ganache/anvil/geth --dev), the EVM counterpart of
	// Bitcoin regtest for the contract HTLC scenarios.
	Register("ETH", Regtest, evm("ETH", "Ethereum Dev", "ETH", 1337))

	// BNB Smart Chain
	Register("BSC", Mainnet, evm("BSC", "BNB Smart Chain", "BNB", 56))
	Register("BSC", Testnet, evm("BSC", "BNB Smart Chain Testnet", "BNB", 97))

	// Polygon PoS
	Register("POLYGON", Mainnet, evm("POLYGON", "Polygon", "MATIC", 137))
	Register("POLYGON", Testnet, evm("POLYGON", "Polygon Amoy", "MATIC", 80002))

	// Arbitrum One
	Register("ARBITRUM", Mainnet, evm("ARBITRUM", "Arbitrum One", "ETH", 42161))
	Register("ARBITRUM", Testnet, evm("ARBITRUM", "Arbitrum Sepolia", "ETH", 421614))

	// OP Mainnet
	Register("OPTIMISM", Mainnet, evm("OPTIMISM", "Optimism", "ETH", 10))
	Register("OPTIMISM", Testnet, evm("OPTIMISM", "Optimism Sepolia", "ETH", 11155420))

	// Base
	Register("BASE", Mainnet, evm("BASE", "Base", "ETH", 8453))
	Register("BASE", Testnet, evm("BASE", "Base Sepolia", "ETH", 84532))

	// Avalanche C-Chain
	Register("AVAX", Mainnet, evm("AVAX", "Avalanche C-Chain", "AVAX", 43114))
	Register("AVAX", Testnet, evm("AVAX", "Avalanche Fuji", "AVAX", 43113))
}
