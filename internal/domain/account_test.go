package domain

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments-engine/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimalEqual(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestOpenAccount(t *testing.T) {
	acc, err := OpenAccount(Transaction{ID: 1, Client: 4, Amount: dec("10"), Kind: KindDeposit})
	require.NoError(t, err)
	assert.Equal(t, ClientID(4), acc.Client)
	assertDecimalEqual(t, "10", acc.Available)
	assertDecimalEqual(t, "0", acc.Held)
	assert.False(t, acc.Locked)

	for _, kind := range []Kind{KindWithdrawal, KindDispute, KindResolve, KindChargeBack} {
		_, err := OpenAccount(Transaction{ID: 1, Client: 4, Amount: dec("10"), Kind: kind})
		assert.ErrorIs(t, err, errors.ErrInvalidOpeningTransaction, kind.String())
	}
}

func TestAccountApply(t *testing.T) {
	tests := []struct {
		name          string
		account       Account
		txn           Transaction
		wantAvailable string
		wantHeld      string
		wantLocked    bool
		wantErr       *errors.AppError
	}{
		{
			name:          "deposit",
			account:       Account{Client: 1, Available: dec("8")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("7"), Kind: KindDeposit},
			wantAvailable: "15",
			wantHeld:      "0",
		},
		{
			name:          "withdrawal",
			account:       Account{Client: 1, Available: dec("8")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("7"), Kind: KindWithdrawal},
			wantAvailable: "1",
			wantHeld:      "0",
		},
		{
			name:          "withdrawal of everything",
			account:       Account{Client: 1, Available: dec("8.0001")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("8.0001"), Kind: KindWithdrawal},
			wantAvailable: "0",
			wantHeld:      "0",
		},
		{
			name:          "withdrawal with insufficient funds",
			account:       Account{Client: 1, Available: dec("8")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("10"), Kind: KindWithdrawal},
			wantAvailable: "8",
			wantHeld:      "0",
			wantErr:       errors.ErrInsufficientFunds,
		},
		{
			name:          "dispute",
			account:       Account{Client: 1, Available: dec("8")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("7"), Kind: KindDispute},
			wantAvailable: "1",
			wantHeld:      "7",
		},
		{
			name:          "dispute can overdraw available",
			account:       Account{Client: 1, Available: dec("2")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("7"), Kind: KindDispute},
			wantAvailable: "-5",
			wantHeld:      "7",
		},
		{
			name:          "resolve",
			account:       Account{Client: 1, Available: dec("1"), Held: dec("7")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("7"), Kind: KindResolve},
			wantAvailable: "8",
			wantHeld:      "0",
		},
		{
			name:          "chargeback",
			account:       Account{Client: 1, Available: dec("1"), Held: dec("7")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("2"), Kind: KindChargeBack},
			wantAvailable: "1",
			wantHeld:      "5",
			wantLocked:    true,
		},
		{
			name:          "chargeback can overdraw held",
			account:       Account{Client: 1, Available: dec("1")},
			txn:           Transaction{ID: 1, Client: 1, Amount: dec("2"), Kind: KindChargeBack},
			wantAvailable: "1",
			wantHeld:      "-2",
			wantLocked:    true,
		},
		{
			name:          "client mismatch",
			account:       Account{Client: 1, Available: dec("8")},
			txn:           Transaction{ID: 1, Client: 2, Amount: dec("7"), Kind: KindDeposit},
			wantAvailable: "8",
			wantHeld:      "0",
			wantErr:       errors.ErrClientMismatch,
		},
		{
			name:          "client mismatch is checked before lock",
			account:       Account{Client: 1, Available: dec("8"), Locked: true},
			txn:           Transaction{ID: 1, Client: 2, Amount: dec("7"), Kind: KindDeposit},
			wantAvailable: "8",
			wantHeld:      "0",
			wantLocked:    true,
			wantErr:       errors.ErrClientMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.account.Apply(tt.txn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assertDecimalEqual(t, tt.wantAvailable, got.Available)
			assertDecimalEqual(t, tt.wantHeld, got.Held)
			assert.Equal(t, tt.wantLocked, got.Locked)
		})
	}
}

func TestAccountApply_LockedRejectsEveryKind(t *testing.T) {
	locked := Account{Client: 1, Available: dec("3"), Held: dec("4"), Locked: true}

	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			got, err := locked.Apply(Transaction{ID: 1, Client: 1, Amount: dec("1"), Kind: kind})
			assert.ErrorIs(t, err, errors.ErrAccountLocked)
			assert.Equal(t, locked, got)
		})
	}
}

func TestAccountApply_RandomSequenceKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	acc, err := OpenAccount(Transaction{ID: 1, Client: 9, Amount: dec("100.0001"), Kind: KindDeposit})
	require.NoError(t, err)

	wasLocked := false
	for i := 0; i < 5000; i++ {
		kind := Kinds()[rng.Intn(len(Kinds()))]
		amount := decimal.New(rng.Int63n(1_000_000)+1, -int32(rng.Intn(5)))
		before := acc

		next, err := acc.Apply(Transaction{ID: TransactionID(i + 2), Client: 9, Amount: amount, Kind: kind})
		if err != nil {
			assert.Equal(t, before, next, "rejected application must leave the account unchanged")
		}
		acc = next

		assert.True(t, acc.Total().Equal(acc.Available.Add(acc.Held)))
		if err == nil && kind == KindWithdrawal {
			assert.False(t, acc.Available.IsNegative(), "withdrawal overdrew at step %d", i)
		}
		if wasLocked {
			assert.True(t, acc.Locked, "lock reverted at step %d", i)
		}
		wasLocked = acc.Locked
	}
}

func TestAccountApply_DisputeResolveRestoresExactAmount(t *testing.T) {
	acc := Account{Client: 1, Available: dec("0.1")}
	txn := Transaction{ID: 1, Client: 1, Amount: dec("0.2"), Kind: KindDeposit}

	var err error
	for i := 0; i < 1000; i++ {
		txn.Kind = KindDispute
		acc, err = acc.Apply(txn)
		require.NoError(t, err)
		txn.Kind = KindResolve
		acc, err = acc.Apply(txn)
		require.NoError(t, err)
	}

	assertDecimalEqual(t, "0.1", acc.Available)
	assertDecimalEqual(t, "0", acc.Held)
}
