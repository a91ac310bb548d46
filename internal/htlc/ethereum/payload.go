package ethereum

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxGasLimit is the fixed gas limit for invoking a deployed HTLC: redeem
// and refund each do one hash, a couple of storage reads and a single
// transfer, all comfortably under this bound.
const TxGasLimit uint64 = 100_000

// deployment cost components: the per-transaction intrinsic cost, the
// contract-creation surcharge, and the per-byte code-deposit cost.
const (
	intrinsicGas       = 21_000
	createGas          = 32_000
	codeDepositPerByte = 200
	calldataPerByte    = 16
)

// DeploymentGasLimit scales with the deploy payload's length: intrinsic
// transaction cost, the creation surcharge, calldata gas for shipping the
// payload, and the code deposit for what ends up on chain.
func DeploymentGasLimit(data []byte) uint64 {
	n := uint64(len(data))
	return intrinsicGas + createGas + n*calldataPerByte + n*codeDepositPerByte
}

// ContractDeploy is the fully materialised payload of an Ethereum Fund
// action: the deploy transaction's data (bytecode plus ABI-packed
// constructor arguments), its gas limit, and the value funding the HTLC.
// Broadcasting is the caller's job.
type ContractDeploy struct {
	Data     []byte
	GasLimit uint64
	Value    *big.Int
}

// NewContractDeploy packs the constructor arguments onto bytecode and sizes
// the gas limit from the resulting payload. value is nil for an ERC20 swap
// funded by a separate token transfer.
func NewContractDeploy(bytecode []byte, secretHash [32]byte, redeemAddr, refundAddr common.Address, expiry *big.Int, value *big.Int) (ContractDeploy, error) {
	parsed, err := RFC003HTLCMetaData.GetAbi()
	if err != nil {
		return ContractDeploy{}, fmt.Errorf("ethereum: parse abi: %w", err)
	}
	args, err := parsed.Pack("", secretHash, redeemAddr, refundAddr, expiry)
	if err != nil {
		return ContractDeploy{}, fmt.Errorf("ethereum: pack constructor: %w", err)
	}
	data := append(append([]byte(nil), bytecode...), args...)
	return ContractDeploy{Data: data, GasLimit: DeploymentGasLimit(data), Value: value}, nil
}

// SendTransaction is the fully materialised payload of an Ethereum Redeem
// or Refund action: target contract, calldata, and gas limit.
type SendTransaction struct {
	To       common.Address
	Data     []byte
	GasLimit uint64
}

// NewRedeemTransaction packs redeem(preimage) against contract. The
// preimage is forwarded byte-for-byte; no padding is applied at any length.
func NewRedeemTransaction(contract common.Address, preimage []byte) (SendTransaction, error) {
	parsed, err := RFC003HTLCMetaData.GetAbi()
	if err != nil {
		return SendTransaction{}, fmt.Errorf("ethereum: parse abi: %w", err)
	}
	data, err := parsed.Pack("redeem", preimage)
	if err != nil {
		return SendTransaction{}, fmt.Errorf("ethereum: pack redeem: %w", err)
	}
	return SendTransaction{To: contract, Data: data, GasLimit: TxGasLimit}, nil
}

// NewRefundTransaction packs refund() against contract.
func NewRefundTransaction(contract common.Address) (SendTransaction, error) {
	parsed, err := RFC003HTLCMetaData.GetAbi()
	if err != nil {
		return SendTransaction{}, fmt.Errorf("ethereum: parse abi: %w", err)
	}
	data, err := parsed.Pack("refund")
	if err != nil {
		return SendTransaction{}, fmt.Errorf("ethereum: pack refund: %w", err)
	}
	return SendTransaction{To: contract, Data: data, GasLimit: TxGasLimit}, nil
}
