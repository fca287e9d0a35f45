package account

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNumbers struct {
	taken map[string]bool
	err   error
	calls int
}

func (s *stubNumbers) ExistsByNumber(_ context.Context, number string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.taken[number], nil
}

func sequence(numbers ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		n := numbers[i%len(numbers)]
		i++
		return n, nil
	}
}

func TestGenerateAccountNumber_Format(t *testing.T) {
	for range 50 {
		n, err := generateAccountNumber()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{10}$`, n)
	}
}

func TestAllocator_SkipsTakenNumbers(t *testing.T) {
	numbers := &stubNumbers{taken: map[string]bool{"1111111111": true, "2222222222": true}}
	a := NewAllocator(numbers, 5)
	a.generate = sequence("1111111111", "2222222222", "3333333333")

	got, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3333333333", got)
	assert.Equal(t, 3, numbers.calls)
}

func TestAllocator_Exhausted(t *testing.T) {
	numbers := &stubNumbers{taken: map[string]bool{"1111111111": true}}
	a := NewAllocator(numbers, 3)
	a.generate = sequence("1111111111")

	_, err := a.Allocate(context.Background())
	require.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Equal(t, 3, numbers.calls)
}

func TestAllocator_LookupError(t *testing.T) {
	boom := errors.New("connection reset")
	a := NewAllocator(&stubNumbers{err: boom}, 3)

	_, err := a.Allocate(context.Background())
	require.ErrorIs(t, err, boom)
}
