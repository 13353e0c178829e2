package ledger

import "errors"

// Tipos de falha expostos pelo núcleo. Sempre embrulhados com %w e testados com errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOddNotActive      = errors.New("odd not active")
	ErrInvalidState      = errors.New("invalid state")
	ErrAlreadySettled    = errors.New("match already settled")
	ErrNotFound          = errors.New("not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrInvalidTransition = errors.New("invalid bet transition")
	ErrConflict          = errors.New("conflict")
)

// IsClientError indica se o erro é uma rejeição de regra de negócio ou entrada inválida
func IsClientError(err error) bool {
	for _, e := range []error{
		ErrInvalidInput, ErrInsufficientFunds, ErrOddNotActive, ErrInvalidState,
		ErrAlreadySettled, ErrNotFound, ErrMatchNotFound, ErrInvalidTransition, ErrConflict,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
