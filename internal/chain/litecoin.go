package chain

func init() {
	// Litecoin shares Bitcoin's SegWit script semantics, so the same
	// P2WSH HTLC deploys unchanged; only the address encoding differs.

	// Litecoin mainnet
	Register("LTC", Mainnet, &Params{
		Symbol:   "LTC",
		Name:     "Litecoin",
		Family:   FamilyUTXO,
		Decimals: 8,
		CoinType: 2,

		Bech32HRP:        "ltc",
		PubKeyHashAddrID: 0x30,
		ScriptHashAddrID: 0x32,
		WIF:              0xB0,

		HDPrivateKeyID: [4]byte{0x01, 0x9d, 0x9c, 0xfe}, // Ltpv
		HDPublicKeyID:  [4]byte{0x01, 0x9d, 0xa4, 0x62}, // Ltub
	})

	// Litecoin testnet
	Register("LTC", Testnet, &Params{
		Symbol:   "LTC",
		Name:     "Litecoin Testnet",
		Family:   FamilyUTXO,
		Decimals: 8,
		CoinType: 1,

		Bech32HRP:        "tltc",
		PubKeyHashAddrID: 0x6F,
		ScriptHashAddrID: 0x3A,
		WIF:              0xEF,

		HDPrivateKeyID: [4]byte{0x04, 0x36, 0xef, 0x7d}, // ttpv
		HDPublicKeyID:  [4]byte{0x04, 0x36, 0xf6, 0xe1}, // ttub
	})
}
