package chain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Decimals is the VERD token precision.
const Decimals = 18

var weiPerVERD = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// ParseVERD converts a decimal VERD amount ("10", "2.5") to wei.
func ParseVERD(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("negative amount %q", amount)
	}

	whole := amount
	frac := ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("amount %q exceeds %d decimal places", amount, Decimals)
	}

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", amount)
	}
	wei := new(big.Int).Mul(wholeInt, weiPerVERD)

	if frac != "" {
		fracInt, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, fmt.Errorf("malformed amount %q", amount)
		}
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Decimals-len(frac))), nil)
		wei.Add(wei, fracInt.Mul(fracInt, scale))
	}

	return wei, nil
}

// ParseVERDFloat converts a VERD amount expressed as a float to wei.
func ParseVERDFloat(amount float64) (*big.Int, error) {
	return ParseVERD(strconv.FormatFloat(amount, 'f', -1, 64))
}

// FormatVERD renders a wei amount as a decimal VERD string with trailing
// zeros trimmed.
func FormatVERD(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	sign := ""
	abs := new(big.Int).Abs(wei)
	if wei.Sign() < 0 {
		sign = "-"
	}

	whole, frac := new(big.Int).QuoRem(abs, weiPerVERD, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := strings.TrimRight(fmt.Sprintf("%018s", frac.String()), "0")
	return sign + whole.String() + "." + fracStr
}

// VERDValue returns the wei amount as a float64 VERD figure, for gauges
// and logs only; precision loss is acceptable there.
func VERDValue(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt(weiPerVERD)).Float64()
	return f
}
