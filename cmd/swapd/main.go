// Package main wires together the RFC003 swap daemon: the SQLite-backed
// stores, the Bitcoin/EVM ledger registry, the LQS-backed event streams,
// the libp2p comit channel, and the swap dispatcher on top of them.
// Startup order: flags, logging, the cancellable root context, then the
// stores, registries, transport and dispatcher, blocking on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/comit-swap/rfc003/internal/chain"
	"github.com/comit-swap/rfc003/internal/comit"
	"github.com/comit-swap/rfc003/internal/events"
	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/lqs"
	"github.com/comit-swap/rfc003/internal/store"
	"github.com/comit-swap/rfc003/internal/swaphandler"
	"github.com/comit-swap/rfc003/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.swapd", "Data directory")
		listenAddr  = flag.String("listen", "/ip4/0.0.0.0/tcp/0", "libp2p listen multiaddr")
		testnet     = flag.Bool("testnet", false, "Run against Bitcoin testnet3 and Ethereum Sepolia instead of mainnet")
		regtest     = flag.Bool("regtest", false, "Run against Bitcoin regtest and a local EVM dev chain")
		lqsURL      = flag.String("lqs-url", "http://127.0.0.1:9000", "Ledger query service base URL")
		btcPoll     = flag.Int64("btc-poll-seconds", 1, "Bitcoin LQS poll interval, in seconds")
		ethPoll     = flag.Int64("eth-poll-seconds", 1, "Ethereum LQS poll interval, in seconds")
		queueSize   = flag.Int("queue-size", 64, "Swap-handler dispatch queue capacity")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("swapd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dataPath := expandPath(*dataDir)
	st, err := store.Open(dataPath)
	if err != nil {
		log.Fatal("failed to open store", "error", err)
	}
	defer st.Close()
	log.Info("store opened", "path", dataPath)

	network := chain.Mainnet
	btcParams := &chaincfg.MainNetParams
	switch {
	case *regtest:
		network = chain.Regtest
		btcParams = &chaincfg.RegressionNetParams
	case *testnet:
		network = chain.Testnet
		btcParams = &chaincfg.TestNet3Params
	}

	ledger.RegisterBitcoin(ledger.NewBitcoinLedger(btcParams))
	ledger.RegisterEVMChains(network)
	log.Info("ledger registry populated", "network", network)

	lqsClient := lqs.NewHTTPClient(*lqsURL, nil)
	cache := lqs.NewCache(lqsClient, lqs.PollInterval{Bitcoin: *btcPoll, Ethereum: *ethPoll})

	streams := buildStreamFactory(cache, btcParams)

	host, err := libp2p.New(libp2p.ListenAddrStrings(*listenAddr))
	if err != nil {
		log.Fatal("failed to create libp2p host", "error", err)
	}
	defer host.Close()

	ps, err := pubsub.NewGossipSub(ctx, host)
	if err != nil {
		log.Fatal("failed to create gossipsub router", "error", err)
	}

	channel, err := comit.NewPubSubChannel(ctx, ps, host.ID())
	if err != nil {
		log.Fatal("failed to join comit topic", "error", err)
	}

	handler := swaphandler.NewHandler(st, st, streams, channel, *queueSize)
	handler.Start()
	defer handler.Stop()

	log.Info("swapd running", "peer_id", host.ID().String())
	for _, addr := range host.Addrs() {
		log.Infof("  listening on %s/p2p/%s", addr.String(), host.ID().String())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	cancel()
}

// buildStreamFactory returns a swaphandler.StreamFactory that dispatches on
// ledger family: Bitcoin gets a BitcoinStream, any registered EVM chain
// gets an EthereumStream. The concrete chain-observation bindings
// (BitcoinInspector, EthereumInspector) are node-RPC collaborators;
// unconnectedInspector below is the seam a real Bitcoin Core / geth
// binding plugs into.
func buildStreamFactory(cache *lqs.Cache, btcParams *chaincfg.Params) swaphandler.StreamFactory {
	inspector := unconnectedInspector{}
	return func(l ledger.Ledger) (events.Stream, error) {
		switch v := l.(type) {
		case interface{ ChainID() *big.Int }:
			return events.NewEthereumStream(cache, inspector, l.Symbol(), nil), nil
		default:
			if l.Symbol() == ledger.SymbolBitcoin {
				return events.NewBitcoinStream(cache, inspector, btcParams), nil
			}
			return nil, fmt.Errorf("swapd: no stream binding for ledger %s (%T)", l.Symbol(), v)
		}
	}
}

// unconnectedInspector implements both events.BitcoinInspector and
// events.EthereumInspector by reporting that no node RPC binding has been
// configured yet. A production deployment replaces this with a binding to
// Bitcoin Core (for BitcoinInspector) and geth/ethclient (for
// EthereumInspector); until then it is a clearly marked seam rather than
// a fake.
type unconnectedInspector struct{}

var errNoNodeBinding = fmt.Errorf("swapd: no node RPC binding configured for this ledger")

func (unconnectedInspector) FindOutput(ctx context.Context, txID, address string) (uint32, int64, error) {
	return 0, 0, errNoNodeBinding
}

func (unconnectedInspector) ClassifySpend(ctx context.Context, txID, location string) (ledger.Outcome, error) {
	return ledger.Outcome{}, errNoNodeBinding
}

func (unconnectedInspector) ContractBalance(ctx context.Context, contract string) (*big.Int, error) {
	return nil, errNoNodeBinding
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return home + path[1:]
	}
	return path
}
