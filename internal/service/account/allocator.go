package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const accountNumberLength = 10

var ErrAllocationExhausted = errors.New("could not allocate a free account number")

type numberChecker interface {
	ExistsByNumber(ctx context.Context, number string) (bool, error)
}

// Allocator hands out account numbers that were free when checked. It does
// not reserve them: two allocators can return the same number, and the
// accounts table's unique constraint decides which insert wins.
type Allocator struct {
	numbers     numberChecker
	generate    func() (string, error)
	maxAttempts int
}

func NewAllocator(numbers numberChecker, maxAttempts int) *Allocator {
	return &Allocator{
		numbers:     numbers,
		generate:    generateAccountNumber,
		maxAttempts: maxAttempts,
	}
}

func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for range a.maxAttempts {
		number, err := a.generate()
		if err != nil {
			return "", fmt.Errorf("Allocate: %w", err)
		}

		taken, err := a.numbers.ExistsByNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("Allocate: %w", err)
		}
		if !taken {
			return number, nil
		}
	}
	return "", fmt.Errorf("Allocate: %w", ErrAllocationExhausted)
}

func generateAccountNumber() (string, error) {
	digits := make([]byte, accountNumberLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generateAccountNumber: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}
