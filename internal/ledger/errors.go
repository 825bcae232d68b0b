package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")       // Amount must be positive
	ErrInsufficientBalance = errors.New("insufficient balance") // Debit would drive the balance negative
	ErrNotFound            = errors.New("user not found")       // Referenced user/account absent
	ErrConflict            = errors.New("concurrent update")    // Lost a balance race, retry later
)
