package payload

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

// FormatSolanaAmount renders a human decimal with at least one fractional
// digit, so 1 becomes "1.0" and 2.5 stays "2.5".
func FormatSolanaAmount(amount decimal.Decimal) string {
	s := amount.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// EncodeSolanaPay renders a Solana Pay transfer request:
// solana:<recipient>?amount=<decimal>[&spl-token=<mint>]&label=<label>[&message=<memo>]
//
// The label keeps spaces literal and escapes only the characters that would
// break the query; the message is fully percent-encoded. An empty memo omits
// the message parameter.
func EncodeSolanaPay(recipient string, amount decimal.Decimal, label, memo, splToken string) (string, error) {
	if err := utils.ValidateAddressForFamily(recipient, types.ChainSolana); err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", types.NewError(types.ErrInvalidAmount, "amount must be greater than zero, got %s", amount)
	}
	if splToken != "" {
		if err := utils.ValidateTokenAddress(splToken, types.ChainSolana); err != nil {
			return "", err
		}
	}
	if label == "" {
		label = types.DefaultLabel
	}

	var b strings.Builder
	b.WriteString("solana:")
	b.WriteString(recipient)
	b.WriteString("?amount=")
	b.WriteString(FormatSolanaAmount(amount))
	if splToken != "" {
		b.WriteString("&spl-token=")
		b.WriteString(splToken)
	}
	b.WriteString("&label=")
	b.WriteString(labelEscaper.Replace(label))
	if memo != "" {
		b.WriteString("&message=")
		b.WriteString(encodeURIComponent(memo))
	}
	return b.String(), nil
}

// labelEscaper escapes query delimiters in a Solana Pay label.
var labelEscaper = strings.NewReplacer(
	"%", "%25",
	"&", "%26",
	"#", "%23",
	"=", "%3D",
	"?", "%3F",
	"+", "%2B",
)

// encodeURIComponent percent-encodes spaces as %20 rather than '+'.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
