package routing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

var errUnexpectedTag = errors.New("unexpected extra args tag")

// Extra-args version tags (first four bytes of keccak256 of the version name).
var (
	GenericExtraArgsV2Tag = common.FromHex("0x181dcf10")
	SVMExtraArgsV1Tag     = common.FromHex("0x1f3b3aba")
)

var (
	uint256Type = mustType("uint256", nil)
	boolType    = mustType("bool", nil)
	addressType = mustType("address", nil)

	genericExtraArgsV2Args = abi.Arguments{
		{Name: "gasLimit", Type: uint256Type},
		{Name: "allowOutOfOrderExecution", Type: boolType},
	}

	svmExtraArgsV1Args = abi.Arguments{{
		Name: "extraArgs",
		Type: mustType("tuple", []abi.ArgumentMarshaling{
			{Name: "computeUnits", Type: "uint32"},
			{Name: "accountIsWritableBitmap", Type: "uint64"},
			{Name: "allowOutOfOrderExecution", Type: "bool"},
			{Name: "tokenReceiver", Type: "bytes32"},
			{Name: "accounts", Type: "bytes32[]"},
		}),
	}}

	addressArgs = abi.Arguments{{Name: "receiver", Type: addressType}}
)

func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

type svmExtraArgsV1 struct {
	ComputeUnits             uint32
	AccountIsWritableBitmap  uint64
	AllowOutOfOrderExecution bool
	TokenReceiver            [32]byte
	Accounts                 [][32]byte
}

// EncodeGenericExtraArgsV2 encodes extra args for an EVM destination, as
// produced by an EVM source router: tag ‖ abi(uint256 gasLimit, bool allowOutOfOrder).
func EncodeGenericExtraArgsV2(gasLimit uint64, allowOutOfOrder bool) ([]byte, error) {
	packed, err := genericExtraArgsV2Args.Pack(new(big.Int).SetUint64(gasLimit), allowOutOfOrder)
	if err != nil {
		return nil, err
	}
	return append(bytes.Clone(GenericExtraArgsV2Tag), packed...), nil
}

// EncodeSVMExtraArgsV1 encodes extra args for a Solana destination. Plain
// token transfers carry no accounts.
func EncodeSVMExtraArgsV1(computeUnits uint32, allowOutOfOrder bool, tokenReceiver solana.PublicKey) ([]byte, error) {
	packed, err := svmExtraArgsV1Args.Pack(svmExtraArgsV1{
		ComputeUnits:             computeUnits,
		AllowOutOfOrderExecution: allowOutOfOrder,
		TokenReceiver:            [32]byte(tokenReceiver),
		Accounts:                 [][32]byte{},
	})
	if err != nil {
		return nil, err
	}
	return append(bytes.Clone(SVMExtraArgsV1Tag), packed...), nil
}

// EncodeSVMSourceExtraArgs encodes GenericExtraArgsV2 the way a Solana source
// router expects it: tag ‖ borsh(u128 gasLimit, bool allowOutOfOrder).
func EncodeSVMSourceExtraArgs(gasLimit uint64, allowOutOfOrder bool) []byte {
	out := make([]byte, 0, 4+16+1)
	out = append(out, GenericExtraArgsV2Tag...)
	out = binary.LittleEndian.AppendUint64(out, gasLimit)
	out = binary.LittleEndian.AppendUint64(out, 0)
	if allowOutOfOrder {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out
}

// DecodeGenericExtraArgsV2 is the inverse of EncodeGenericExtraArgsV2.
func DecodeGenericExtraArgsV2(data []byte) (uint64, bool, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], GenericExtraArgsV2Tag) {
		return 0, false, errUnexpectedTag
	}
	values, err := genericExtraArgsV2Args.Unpack(data[4:])
	if err != nil {
		return 0, false, err
	}
	return values[0].(*big.Int).Uint64(), values[1].(bool), nil
}

// EncodeEVMReceiver abi-encodes an EVM address as the 32-byte receiver field.
func EncodeEVMReceiver(addr common.Address) ([]byte, error) {
	return addressArgs.Pack(addr)
}
