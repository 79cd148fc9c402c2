package entitlement

import (
	"errors"
	"fmt"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
)

// ErrInsufficientBalance — баланса кошелька не хватает на покупку.
// Вместе с ним оборачивается apierrors.ErrValidation.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

const msgInsufficientBalance = "رصيد المحفظة غير كافٍ لإتمام عملية الشراء"

// CheckBalance — проверка перед подтверждением покупки; сервер проверяет повторно.
func CheckBalance(balance, price float64) error {
	if balance < price {
		return fmt.Errorf("%w: %w", ErrInsufficientBalance, apierrors.NewValidation(msgInsufficientBalance))
	}

	return nil
}
