package chain

import "testing"

func TestGet(t *testing.T) {
	tests := []struct {
		symbol  string
		network Network
		want    bool
	}{
		{"BTC", Mainnet, true},
		{"BTC", Testnet, true},
		{"BTC", Regtest, true},
		{"LTC", Mainnet, true},
		{"LTC", Regtest, false},
		{"ETH", Mainnet, true},
		{"ETH", Regtest, true},
		{"ARBITRUM", Mainnet, true},
		{"DOGE", Mainnet, false}, // no SegWit, cannot host the P2WSH HTLC
		{"XMR", Mainnet, false},
		{"", Mainnet, false},
	}
	for _, tt := range tests {
		t.Run(tt.symbol+"/"+string(tt.network), func(t *testing.T) {
			params, ok := Get(tt.symbol, tt.network)
			if ok != tt.want {
				t.Fatalf("Get(%q, %q) ok = %v, want %v", tt.symbol, tt.network, ok, tt.want)
			}
			if ok && params.Symbol != tt.symbol {
				t.Errorf("params.Symbol = %q, want %q", params.Symbol, tt.symbol)
			}
		})
	}
}

func TestBitcoinParams(t *testing.T) {
	btc, ok := Get("BTC", Mainnet)
	if !ok {
		t.Fatal("BTC mainnet not registered")
	}
	if btc.Family != FamilyUTXO {
		t.Errorf("family = %q, want %q", btc.Family, FamilyUTXO)
	}
	if btc.Bech32HRP != "bc" {
		t.Errorf("bech32 hrp = %q, want bc", btc.Bech32HRP)
	}
	if btc.Decimals != 8 {
		t.Errorf("decimals = %d, want 8", btc.Decimals)
	}
	if btc.LockUnit() != LockBlocks {
		t.Errorf("lock unit = %q, want %q", btc.LockUnit(), LockBlocks)
	}

	regtest, ok := Get("BTC", Regtest)
	if !ok {
		t.Fatal("BTC regtest not registered")
	}
	if regtest.Bech32HRP != "bcrt" {
		t.Errorf("regtest bech32 hrp = %q, want bcrt", regtest.Bech32HRP)
	}
}

func TestEVMParams(t *testing.T) {
	eth, ok := Get("ETH", Mainnet)
	if !ok {
		t.Fatal("ETH mainnet not registered")
	}
	if eth.Family != FamilyEVM {
		t.Errorf("family = %q, want %q", eth.Family, FamilyEVM)
	}
	if eth.ChainID != 1 {
		t.Errorf("chain id = %d, want 1", eth.ChainID)
	}
	if eth.LockUnit() != LockSeconds {
		t.Errorf("lock unit = %q, want %q", eth.LockUnit(), LockSeconds)
	}

	dev, ok := Get("ETH", Regtest)
	if !ok {
		t.Fatal("ETH regtest not registered")
	}
	if dev.ChainID != 1337 {
		t.Errorf("dev chain id = %d, want 1337", dev.ChainID)
	}
}

func TestGetByChainID(t *testing.T) {
	tests := []struct {
		chainID uint64
		network Network
		symbol  string
		want    bool
	}{
		{1, Mainnet, "ETH", true},
		{56, Mainnet, "BSC", true},
		{137, Mainnet, "POLYGON", true},
		{42161, Mainnet, "ARBITRUM", true},
		{11155111, Testnet, "ETH", true},
		{1337, Regtest, "ETH", true},
		{999999, Mainnet, "", false},
	}
	for _, tt := range tests {
		params, ok := GetByChainID(tt.chainID, tt.network)
		if ok != tt.want {
			t.Errorf("GetByChainID(%d, %q) ok = %v, want %v", tt.chainID, tt.network, ok, tt.want)
			continue
		}
		if ok && params.Symbol != tt.symbol {
			t.Errorf("GetByChainID(%d, %q).Symbol = %q, want %q", tt.chainID, tt.network, params.Symbol, tt.symbol)
		}
	}
}

func TestListByFamily(t *testing.T) {
	utxo := ListByFamily(FamilyUTXO)
	if !contains(utxo, "BTC") || !contains(utxo, "LTC") {
		t.Errorf("utxo family = %v, want BTC and LTC", utxo)
	}
	if contains(utxo, "ETH") {
		t.Errorf("utxo family contains ETH: %v", utxo)
	}

	evm := ListByFamily(FamilyEVM)
	for _, symbol := range []string{"ETH", "BSC", "POLYGON", "ARBITRUM", "OPTIMISM", "BASE", "AVAX"} {
		if !contains(evm, symbol) {
			t.Errorf("evm family missing %s: %v", symbol, evm)
		}
	}
	if contains(evm, "BTC") {
		t.Errorf("evm family contains BTC: %v", evm)
	}
}

func TestNative(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BTC", "BTC"},
		{"ETH", "ETH"},
		{"BSC", "BNB"},
		{"POLYGON", "MATIC"},
		{"ARBITRUM", "ETH"},
	}
	for _, tt := range tests {
		params, ok := Get(tt.symbol, Mainnet)
		if !ok {
			t.Fatalf("%s not registered", tt.symbol)
		}
		if got := params.Native(); got != tt.want {
			t.Errorf("%s native = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestDerivationPath(t *testing.T) {
	btc, _ := Get("BTC", Mainnet)
	eth, _ := Get("ETH", Mainnet)

	const hardened = 0x80000000
	path := btc.DerivationPath(0, 0, 5)
	want := []uint32{44 + hardened, 0 + hardened, 0 + hardened, 0, 5}
	if len(path) != len(want) {
		t.Fatalf("path length = %d, want %d", len(path), len(want))
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("path[%d] = %#x, want %#x", i, path[i], want[i])
		}
	}

	if got := btc.DerivationPathString(0, 0, 0); got != "m/44'/0'/0'/0/0" {
		t.Errorf("btc path string = %q", got)
	}
	if got := eth.DerivationPathString(1, 0, 2); got != "m/44'/60'/1'/0/2" {
		t.Errorf("eth path string = %q", got)
	}
}

func TestTokens(t *testing.T) {
	usdc := Token(1, "USDC")
	if usdc == nil {
		t.Fatal("USDC not registered on mainnet")
	}
	if usdc.Decimals != 6 {
		t.Errorf("USDC decimals = %d, want 6", usdc.Decimals)
	}
	if usdc.Address != "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48" {
		t.Errorf("USDC address = %q", usdc.Address)
	}

	// same symbol, different chain, different decimals
	if got := TokenDecimals(56, "USDT"); got != 18 {
		t.Errorf("BSC USDT decimals = %d, want 18", got)
	}
	if got := TokenDecimals(1, "USDT"); got != 6 {
		t.Errorf("mainnet USDT decimals = %d, want 6", got)
	}

	if Token(1, "NOPE") != nil {
		t.Error("unknown token should be nil")
	}
	if TokenDecimals(999999, "USDC") != 0 {
		t.Error("unknown chain should have 0 decimals")
	}

	mainnet := ListTokens(1)
	if len(mainnet) != 5 {
		t.Errorf("mainnet token count = %d, want 5", len(mainnet))
	}
	if ListTokens(999999) != nil {
		t.Error("unknown chain should list nil")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
