package routing

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/vitwit/arpay/types"
)

const routerABIJSON = `[
	{
		"type": "function",
		"name": "ccipSend",
		"stateMutability": "payable",
		"inputs": [
			{"name": "destinationChainSelector", "type": "uint64"},
			{
				"name": "message",
				"type": "tuple",
				"components": [
					{"name": "receiver", "type": "bytes"},
					{"name": "data", "type": "bytes"},
					{
						"name": "tokenAmounts",
						"type": "tuple[]",
						"components": [
							{"name": "token", "type": "address"},
							{"name": "amount", "type": "uint256"}
						]
					},
					{"name": "feeToken", "type": "address"},
					{"name": "extraArgs", "type": "bytes"}
				]
			}
		],
		"outputs": [{"name": "", "type": "bytes32"}]
	}
]`

var routerABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid router ABI: %v", err))
	}
	return parsed
}()

// ccipSendDiscriminator is the Anchor instruction discriminator of ccip_send.
var ccipSendDiscriminator = func() [8]byte {
	sum := sha256.Sum256([]byte("global:ccip_send"))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

type evmTokenAmount struct {
	Token  common.Address
	Amount *big.Int
}

type evm2AnyMessage struct {
	Receiver     []byte
	Data         []byte
	TokenAmounts []evmTokenAmount
	FeeToken     common.Address
	ExtraArgs    []byte
}

// EncodeEVMCCIPSend returns the call data of
// ccipSend(uint64,(bytes,bytes,(address,uint256)[],address,bytes)).
func EncodeEVMCCIPSend(msg *types.CrossChainMessage) ([]byte, error) {
	m := evm2AnyMessage{
		Receiver:     msg.Receiver,
		Data:         msg.Data,
		TokenAmounts: make([]evmTokenAmount, 0, len(msg.TokenAmounts)),
		FeeToken:     common.HexToAddress(msg.FeeToken),
		ExtraArgs:    msg.ExtraArgs,
	}
	if m.Data == nil {
		m.Data = []byte{}
	}
	for _, ta := range msg.TokenAmounts {
		if !common.IsHexAddress(ta.Token) {
			return nil, types.NewError(types.ErrInvalidAddress, "invalid token address %q", ta.Token)
		}
		m.TokenAmounts = append(m.TokenAmounts, evmTokenAmount{
			Token:  common.HexToAddress(ta.Token),
			Amount: ta.Amount,
		})
	}

	data, err := routerABI.Pack("ccipSend", msg.DestinationChainSelector, m)
	if err != nil {
		return nil, fmt.Errorf("failed to pack ccipSend: %w", err)
	}
	return data, nil
}

// DecodeEVMCCIPSend unpacks ccipSend call data into the selector and message.
func DecodeEVMCCIPSend(data []byte) (uint64, *types.CrossChainMessage, error) {
	method := routerABI.Methods["ccipSend"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return 0, nil, fmt.Errorf("call data is not a ccipSend call")
	}

	var args struct {
		DestinationChainSelector uint64
		Message                  evm2AnyMessage
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return 0, nil, fmt.Errorf("failed to unpack ccipSend: %w", err)
	}
	if err := method.Inputs.Copy(&args, values); err != nil {
		return 0, nil, fmt.Errorf("failed to copy ccipSend arguments: %w", err)
	}

	msg := &types.CrossChainMessage{
		DestinationChainSelector: args.DestinationChainSelector,
		Receiver:                 args.Message.Receiver,
		Data:                     args.Message.Data,
		FeeToken:                 args.Message.FeeToken.Hex(),
		ExtraArgs:                args.Message.ExtraArgs,
	}
	for _, ta := range args.Message.TokenAmounts {
		msg.TokenAmounts = append(msg.TokenAmounts, types.TokenAmount{Token: ta.Token.Hex(), Amount: ta.Amount})
	}
	return args.DestinationChainSelector, msg, nil
}

// EncodeSVMCCIPSend returns the borsh-encoded ccip_send instruction data for
// the Solana router program:
// discriminator ‖ u64 selector ‖ SVM2AnyMessage ‖ Vec<u8> token_indexes.
func EncodeSVMCCIPSend(msg *types.CrossChainMessage) ([]byte, error) {
	feeToken, err := solana.PublicKeyFromBase58(msg.FeeToken)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidAddress, "invalid fee token %q: %v", msg.FeeToken, err)
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	write := func(fns ...func() error) error {
		for _, fn := range fns {
			if err := fn(); err != nil {
				return err
			}
		}
		return nil
	}

	err = write(
		func() error { return enc.WriteBytes(ccipSendDiscriminator[:], false) },
		func() error { return enc.WriteUint64(msg.DestinationChainSelector, binary.LittleEndian) },
		func() error { return enc.WriteBytes(msg.Receiver, true) },
		func() error { return enc.WriteBytes(msg.Data, true) },
		func() error { return enc.WriteUint32(uint32(len(msg.TokenAmounts)), binary.LittleEndian) },
	)
	if err != nil {
		return nil, err
	}

	indexes := make([]byte, 0, len(msg.TokenAmounts))
	for i, ta := range msg.TokenAmounts {
		mint, err := solana.PublicKeyFromBase58(ta.Token)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidAddress, "invalid token mint %q: %v", ta.Token, err)
		}
		if ta.Amount == nil || !ta.Amount.IsUint64() {
			return nil, types.NewError(types.ErrInvalidAmount, "token amount does not fit in u64")
		}
		err = write(
			func() error { return enc.WriteBytes(mint[:], false) },
			func() error { return enc.WriteUint64(ta.Amount.Uint64(), binary.LittleEndian) },
		)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, byte(i))
	}

	err = write(
		func() error { return enc.WriteBytes(feeToken[:], false) },
		func() error { return enc.WriteBytes(msg.ExtraArgs, true) },
		func() error { return enc.WriteBytes(indexes, true) },
	)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
