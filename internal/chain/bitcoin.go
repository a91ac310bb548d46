package chain

func init() {
	// Bitcoin mainnet
	Register("BTC", Mainnet, &Params{
		Symbol:   "BTC",
		Name:     "Bitcoin",
		Family:   FamilyUTXO,
		Decimals: 8,
		CoinType: 0,

		Bech32HRP:        "bc",
		PubKeyHashAddrID: 0x00,
		ScriptHashAddrID: 0x05,
		WIF:              0x80,

		HDPrivateKeyID: [4]byte{0x04, 0x88, 0xad, 0xe4}, // xprv
		HDPublicKeyID:  [4]byte{0x04, 0x88, 0xb2, 0x1e}, // xpub
	})

	// Bitcoin testnet3
	Register("BTC", Testnet, &Params{
		Symbol:   "BTC",
		Name:     "Bitcoin Testnet",
		Family:   FamilyUTXO,
		Decimals: 8,
		CoinType: 1, // all testnets share coin type 1

		Bech32HRP:        "tb",
		PubKeyHashAddrID: 0x6F,
		ScriptHashAddrID: 0xC4,
		WIF:              0xEF,

		HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94}, // tprv
		HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf}, // tpub
	})

	// Bitcoin regtest, the network the HTLC redeem/refund scenarios run
	// against. Same prefixes as testnet apart from the bech32 HRP.
	Register("BTC", Regtest, &Params{
		Symbol:   "BTC",
		Name:     "Bitcoin Regtest",
		Family:   FamilyUTXO,
		Decimals: 8,
		CoinType: 1,

		Bech32HRP:        "bcrt",
		PubKeyHashAddrID: 0x6F,
		ScriptHashAddrID: 0xC4,
		WIF:              0xEF,

		HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94}, // tprv
		HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf}, // tpub
	})
}
