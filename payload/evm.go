package payload

import (
	"bytes"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

// TransferSelector is the 4-byte discriminator of transfer(address,uint256).
const TransferSelector = "0xa9059cbb"

const erc20TransferABIJSON = `[
	{
		"type": "function",
		"name": "transfer",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "bool"}]
	}
]`

var erc20TransferABI = mustParseABI(erc20TransferABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI definition: %v", err))
	}
	return parsed
}

// TransferCallData returns selector ‖ pad32(recipient) ‖ pad32(amount).
func TransferCallData(recipient string, amount *big.Int) ([]byte, error) {
	if err := utils.ValidateAddressForFamily(recipient, types.ChainEVM); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, types.NewError(types.ErrInvalidAmount, "transfer amount must be positive")
	}
	data, err := erc20TransferABI.Pack("transfer", common.HexToAddress(recipient), amount)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidAmount, "failed to pack transfer: %v", err)
	}
	return data, nil
}

// DecodeTransferCallData is the inverse of TransferCallData.
func DecodeTransferCallData(data []byte) (common.Address, *big.Int, error) {
	method := erc20TransferABI.Methods["transfer"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return common.Address{}, nil, fmt.Errorf("call data is not a transfer(address,uint256) call")
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to unpack transfer arguments: %w", err)
	}
	to, ok := args[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("unexpected recipient type %T", args[0])
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("unexpected amount type %T", args[1])
	}
	return to, amount, nil
}

// EncodeEVMTokenTransfer renders an EIP-681 token transfer:
// ethereum:<token>@<chainId>/transfer?address=<recipient>&uint256=<amount>
func EncodeEVMTokenTransfer(tokenContract string, chainID uint64, recipient string, amount *big.Int) (string, error) {
	if err := utils.ValidateAddressForFamily(tokenContract, types.ChainEVM); err != nil {
		return "", err
	}
	if err := utils.ValidateAddressForFamily(recipient, types.ChainEVM); err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", types.NewError(types.ErrInvalidAmount, "transfer amount must be positive")
	}

	return fmt.Sprintf("ethereum:%s@%d/transfer?address=%s&uint256=%s",
		tokenContract, chainID, recipient, amount.String()), nil
}

// EncodeEVMNativeTransfer renders an EIP-681 native value transfer:
// ethereum:<recipient>@<chainId>?value=<amount>
func EncodeEVMNativeTransfer(chainID uint64, recipient string, amount *big.Int) (string, error) {
	if err := utils.ValidateAddressForFamily(recipient, types.ChainEVM); err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", types.NewError(types.ErrInvalidAmount, "transfer amount must be positive")
	}

	return fmt.Sprintf("ethereum:%s@%d?value=%s", recipient, chainID, amount.String()), nil
}

// EVMTransfer is a decoded EIP-681 payment URI.
type EVMTransfer struct {
	Target    string // token contract, or recipient for native transfers
	ChainID   uint64
	Function  string // "transfer" or empty for native
	Recipient string
	Amount    *big.Int
}

// IsNative reports whether the URI is a plain value transfer.
func (t *EVMTransfer) IsNative() bool {
	return t.Function == ""
}

// ParseEVMURI decodes the two URI shapes produced by this package.
func ParseEVMURI(uri string) (*EVMTransfer, error) {
	rest, ok := strings.CutPrefix(uri, "ethereum:")
	if !ok {
		return nil, fmt.Errorf("not an ethereum URI: %q", uri)
	}

	path, rawQuery, _ := strings.Cut(rest, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	path, function, _ := strings.Cut(path, "/")
	target, chain, hasChain := strings.Cut(path, "@")

	out := &EVMTransfer{Target: target, Function: function}
	if hasChain {
		out.ChainID, err = strconv.ParseUint(chain, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q: %w", chain, err)
		}
	}

	switch function {
	case "transfer":
		out.Recipient = query.Get("address")
		out.Amount, err = utils.ValidateBigInt(query.Get("uint256"))
	case "":
		out.Recipient = target
		out.Amount, err = utils.ValidateBigInt(query.Get("value"))
	default:
		return nil, fmt.Errorf("unsupported function %q", function)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	return out, nil
}
