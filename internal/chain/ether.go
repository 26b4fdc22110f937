package chain

import (
	"errors"
	"math/big"
	"strings"
)

const etherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

var errInvalidAmount = errors.New("сумма должна быть положительным десятичным числом с точностью до 18 знаков")

// ParseEther переводит десятичную сумму в эфирах в wei без потери точности.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errInvalidAmount
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > etherDecimals || !digitsOnly(whole) || !digitsOnly(frac) {
		return nil, errInvalidAmount
	}

	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, errInvalidAmount
	}
	wei := new(big.Int).Mul(w, weiPerEther)

	if frac != "" {
		f, ok := new(big.Int).SetString(frac+strings.Repeat("0", etherDecimals-len(frac)), 10)
		if !ok {
			return nil, errInvalidAmount
		}
		wei.Add(wei, f)
	}

	if wei.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	return wei, nil
}

// FormatEther переводит wei в десятичную строку в эфирах без лишних нулей.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	q, r := new(big.Int).QuoRem(wei, weiPerEther, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := r.Abs(r).String()
	frac = strings.Repeat("0", etherDecimals-len(frac)) + frac
	return q.String() + "." + strings.TrimRight(frac, "0")
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
