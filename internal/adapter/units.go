package adapter

import (
	"math"
	"math/big"
)

// ToBaseUnits converts a token-unit amount to the chain's integer base units
// (wei, satoshi, planck, stroop, micro-denominations). Conversion truncates
// toward zero; sub-base-unit dust is never sent.
func ToBaseUnits(amount float64, decimals int32) *big.Int {
	scaled := new(big.Float).Mul(
		big.NewFloat(amount),
		new(big.Float).SetFloat64(math.Pow10(int(decimals))),
	)
	result, _ := scaled.Int(nil)
	return result
}

// FromBaseUnits converts integer base units back to token units.
func FromBaseUnits(base *big.Int, decimals int32) float64 {
	f := new(big.Float).SetInt(base)
	f.Quo(f, new(big.Float).SetFloat64(math.Pow10(int(decimals))))
	out, _ := f.Float64()
	return out
}
