package workflow

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// newOrderCode генерирует человекочитаемый код заказа вида NNN-NNN.
// Код печатается на чеке и диктуется телеграм-боту, поэтому короткий.
// Уникальность кода гарантирует хранилище, генератор только бросает кубик.
func newOrderCode() (string, error) {
	left, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", fmt.Errorf("workflow: generate order code: %w", err)
	}
	right, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", fmt.Errorf("workflow: generate order code: %w", err)
	}
	return fmt.Sprintf("%03d-%03d", left.Int64(), right.Int64()), nil
}
