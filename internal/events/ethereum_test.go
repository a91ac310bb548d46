package events

import (
	"context"
	"crypto/rand"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/lqs"
	"github.com/comit-swap/rfc003/internal/secret"
)

func newTestEthereumStream(client lqs.LedgerQueryClient, token *string) (*EthereumStream, *fakeEthereumInspector) {
	cache := lqs.NewCache(client, lqs.PollInterval{})
	inspector := newFakeEthereumInspector()
	stream := NewEthereumStream(cache, inspector, ledger.SymbolEthereum, token).WithPollInterval(5 * time.Millisecond)
	return stream, inspector
}

func TestEthereumStreamDeployed(t *testing.T) {
	client := lqs.NewFakeLedgerQueryClient()
	stream, _ := newTestEthereumStream(client, nil)

	s, err := secret.Generate(rand.Reader)
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	redeem := ledger.EthereumIdentity(common.HexToAddress("0x00000000000000000000000000000000000001"))
	params := HtlcParams{
		RedeemIdentity: redeem,
		RefundIdentity: ledger.EthereumIdentity(common.HexToAddress("0x00000000000000000000000000000000000002")),
		SecretHash:     s.Hash(),
		Expiry:         ledger.EthereumLockDuration{ExpiryUnix: 4102444800},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	locCh, errCh := stream.Deployed(ctx, params)

	fp := lqs.Query{
		Ledger:     string(ledger.SymbolEthereum),
		Kind:       lqs.KindHtlcDeployed,
		Recipient:  redeem.String(),
		SecretHash: s.Hash().String(),
	}.Fingerprint()
	waitForQuery(t, client, fp)
	id, _ := client.IDFor(fp)

	contract := "0x0000000000000000000000000000000000000099"
	client.PushMatch(id, contract)

	select {
	case loc := <-locCh:
		if loc.String() != common.HexToAddress(contract).Hex() {
			t.Fatalf("location = %q, want %q", loc.String(), common.HexToAddress(contract).Hex())
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for deployed")
	}
}

func TestEthereumStreamFundedRetriesOnUnderfunding(t *testing.T) {
	client := lqs.NewFakeLedgerQueryClient()
	stream, inspector := newTestEthereumStream(client, nil)

	contract := "0x0000000000000000000000000000000000000099"
	location := ledger.EthereumHtlcLocation(common.HexToAddress(contract))
	inspector.setBalance(contract, 5)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	fundedCh, errCh := stream.Funded(ctx, HtlcParams{}, location, ledger.EthereumQuantity{Amount: big.NewInt(100)})

	time.Sleep(20 * time.Millisecond)
	inspector.setBalance(contract, 150)

	select {
	case tx := <-fundedCh:
		got := tx.Quantity.(ledger.EthereumQuantity).Amount
		if got.Int64() != 150 {
			t.Fatalf("funded amount = %d, want 150", got.Int64())
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for funded")
	}
}

func TestEthereumStreamRedeemedOrRefunded(t *testing.T) {
	client := lqs.NewFakeLedgerQueryClient()
	stream, inspector := newTestEthereumStream(client, nil)

	contract := "0x00000000000000000000000000000000000099"
	location := ledger.EthereumHtlcLocation(common.HexToAddress(contract))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	outCh, errCh := stream.RedeemedOrRefunded(ctx, HtlcParams{}, location)

	fp := lqs.Query{Ledger: string(ledger.SymbolEthereum), Kind: lqs.KindRedeemedOrRefunded, Location: location.String()}.Fingerprint()
	waitForQuery(t, client, fp)
	id, _ := client.IDFor(fp)

	inspector.setSpend("0xabc", location.String(), ledger.Outcome{Redeemed: false})
	client.PushMatch(id, "0xabc")

	select {
	case outcome := <-outCh:
		if outcome.Redeemed {
			t.Fatal("expected Refunded outcome")
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for outcome")
	}
}
