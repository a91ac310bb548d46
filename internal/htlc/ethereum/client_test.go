// Integration tests require a local Anvil node with a deployed contract:
//
//	anvil &
//	forge create RFC003HTLC --constructor-args ...
//
// Then run with TEST_RPC_URL and TEST_CONTRACT_ADDRESS set, e.g.:
//
//	TEST_CONTRACT_ADDRESS=0x... go test -v ./internal/htlc/ethereum/... -run TestIntegration
package ethereum

import (
	"context"
	"crypto/sha256"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestGenerateSecretIsRandomAndFullLength(t *testing.T) {
	s1, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	s2, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if s1.String() == s2.String() {
		t.Fatal("two generated secrets are identical")
	}
	if len(s1.Raw()) != 32 {
		t.Fatalf("secret length = %d, want 32", len(s1.Raw()))
	}
}

func TestVerifyPreimageMatchesAndRejects(t *testing.T) {
	preimage := []byte("hello world, you are beautiful!!")
	hash := sha256.Sum256(preimage)

	if !VerifyPreimage(preimage, hash) {
		t.Fatal("expected matching preimage to verify")
	}
	if VerifyPreimage([]byte("wrong preimage"), hash) {
		t.Fatal("expected mismatched preimage to fail verification")
	}
}

// testConfig holds integration-test configuration read from the environment.
type testConfig struct {
	rpcURL          string
	contractAddress common.Address
	redeemerKey     string
}

func getTestConfig(t *testing.T) *testConfig {
	t.Helper()

	rpcURL := os.Getenv("TEST_RPC_URL")
	if rpcURL == "" {
		rpcURL = "http://localhost:8545"
	}

	contractAddr := os.Getenv("TEST_CONTRACT_ADDRESS")
	if contractAddr == "" {
		t.Skip("TEST_CONTRACT_ADDRESS not set, skipping integration test")
	}

	redeemerKeyHex := os.Getenv("TEST_REDEEMER_KEY")
	if redeemerKeyHex == "" {
		redeemerKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	}

	return &testConfig{
		rpcURL:          rpcURL,
		contractAddress: common.HexToAddress(contractAddr),
		redeemerKey:     redeemerKeyHex,
	}
}

func TestIntegrationDialAndReadDetails(t *testing.T) {
	cfg := getTestConfig(t)

	ctx := context.Background()
	client, err := Dial(ctx, cfg.rpcURL, cfg.contractAddress)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if client.ChainID() == nil {
		t.Fatal("ChainID is nil")
	}
	if client.ContractAddress() != cfg.contractAddress {
		t.Fatalf("ContractAddress = %s, want %s", client.ContractAddress().Hex(), cfg.contractAddress.Hex())
	}

	details, err := client.Details(ctx)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if details.Settled {
		t.Fatal("freshly deployed contract reports settled")
	}
}

func TestIntegrationRedeemRevealsPreimage(t *testing.T) {
	cfg := getTestConfig(t)

	ctx := context.Background()
	client, err := Dial(ctx, cfg.rpcURL, cfg.contractAddress)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	priv, err := crypto.HexToECDSA(cfg.redeemerKey)
	if err != nil {
		t.Fatalf("HexToECDSA: %v", err)
	}

	redeemed, err := client.WatchRedeemed(ctx)
	if err != nil {
		t.Fatalf("WatchRedeemed: %v", err)
	}

	preimage := []byte(os.Getenv("TEST_PREIMAGE"))
	if len(preimage) == 0 {
		t.Skip("TEST_PREIMAGE not set, skipping redeem integration test")
	}

	tx, err := client.Redeem(ctx, priv, preimage)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	t.Logf("submitted redeem tx %s", tx.Hash().Hex())

	select {
	case ev := <-redeemed:
		if string(ev.Preimage) != string(preimage) {
			t.Fatalf("decoded preimage %q, want %q", ev.Preimage, preimage)
		}
	case <-ctx.Done():
		t.Fatal("context cancelled waiting for Redeemed event")
	}
}
