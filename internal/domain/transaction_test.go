package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments-engine/internal/errors"
)

func TestAdvance_NewRootTransaction(t *testing.T) {
	amount := decimal.RequireFromString("10.5")

	for _, kind := range []Kind{KindDeposit, KindWithdrawal} {
		t.Run(kind.String(), func(t *testing.T) {
			txn, err := Advance(nil, Command{ID: 7, Client: 3, Kind: kind, Amount: amount})
			require.NoError(t, err)
			assert.Equal(t, Transaction{ID: 7, Client: 3, Amount: amount, Kind: kind}, txn)
		})
	}
}

func TestAdvance_NewAdvancedTransactionRequiresRoot(t *testing.T) {
	for _, kind := range []Kind{KindDispute, KindResolve, KindChargeBack} {
		t.Run(kind.String(), func(t *testing.T) {
			_, err := Advance(nil, Command{ID: 99, Client: 1, Kind: kind})
			assert.ErrorIs(t, err, errors.ErrRootTransactionRequired)
		})
	}
}

func TestAdvance_TransitionTable(t *testing.T) {
	legal := map[[2]Kind]bool{
		{KindDeposit, KindDispute}:    true,
		{KindWithdrawal, KindDispute}: true,
		{KindDispute, KindResolve}:    true,
		{KindDispute, KindChargeBack}: true,
	}
	amount := decimal.RequireFromString("4.2500")

	for _, from := range Kinds() {
		for _, to := range Kinds() {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				stored := &Transaction{ID: 1, Client: 2, Amount: amount, Kind: from}
				next, err := Advance(stored, Command{ID: 1, Client: 2, Kind: to, Amount: decimal.NewFromInt(999)})

				if !legal[[2]Kind{from, to}] {
					require.ErrorIs(t, err, errors.ErrInvalidTransition)
					appErr, ok := errors.AsAppError(err)
					require.True(t, ok)
					assert.Contains(t, appErr.Message, from.String())
					assert.Contains(t, appErr.Message, to.String())
					return
				}

				require.NoError(t, err)
				assert.Equal(t, to, next.Kind)
				assert.True(t, amount.Equal(next.Amount), "amount must come from the stored record")
				assert.Equal(t, "4.25", next.Amount.String())
				assert.Equal(t, TransactionID(1), next.ID)
				assert.Equal(t, ClientID(2), next.Client)
			})
		}
	}
}

func TestAdvance_RejectsForeignClient(t *testing.T) {
	stored := &Transaction{ID: 1, Client: 1, Amount: decimal.NewFromInt(10), Kind: KindDeposit}

	_, err := Advance(stored, Command{ID: 1, Client: 2, Kind: KindDispute})
	assert.ErrorIs(t, err, errors.ErrUnexpectedClient)
	assert.Equal(t, KindDeposit, stored.Kind, "stored record must not be modified")
}

func TestAdvance_RejectsMismatchedID(t *testing.T) {
	stored := &Transaction{ID: 1, Client: 1, Amount: decimal.NewFromInt(10), Kind: KindDeposit}

	_, err := Advance(stored, Command{ID: 2, Client: 1, Kind: KindDispute})
	assert.ErrorIs(t, err, errors.ErrUnexpectedTransaction)
}

func TestAdvance_IdIsCheckedBeforeClient(t *testing.T) {
	stored := &Transaction{ID: 1, Client: 1, Amount: decimal.NewFromInt(10), Kind: KindDeposit}

	_, err := Advance(stored, Command{ID: 2, Client: 2, Kind: KindDispute})
	assert.ErrorIs(t, err, errors.ErrUnexpectedTransaction)
}

func TestAdvance_RejectionIsRepeatable(t *testing.T) {
	stored := &Transaction{ID: 1, Client: 1, Amount: decimal.NewFromInt(10), Kind: KindResolve}
	cmd := Command{ID: 1, Client: 1, Kind: KindDispute}

	_, first := Advance(stored, cmd)
	_, second := Advance(stored, cmd)

	assert.Equal(t, errors.CodeOf(first), errors.CodeOf(second))
	assert.Equal(t, errors.InvalidTransition, errors.CodeOf(first))
	assert.Equal(t, KindResolve, stored.Kind)
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"deposit":     KindDeposit,
		" Withdrawal": KindWithdrawal,
		"dispute":     KindDispute,
		"resolve ":    KindResolve,
		"CHARGEBACK":  KindChargeBack,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("refund")
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestCommand_Validate(t *testing.T) {
	assert.NoError(t, Command{ID: 1, Client: 1, Kind: KindDeposit, Amount: decimal.NewFromInt(1)}.Validate())
	assert.NoError(t, Command{ID: 1, Client: 1, Kind: KindDispute}.Validate())

	err := Command{ID: 1, Client: 1, Kind: KindWithdrawal, Amount: decimal.NewFromInt(-1)}.Validate()
	assert.Equal(t, errors.InvalidAmount, errors.CodeOf(err))

	err = Command{ID: 1, Client: 1, Kind: KindDeposit}.Validate()
	assert.Equal(t, errors.InvalidAmount, errors.CodeOf(err))

	err = Command{ID: 1, Client: 1}.Validate()
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 1.2345 ")
	require.NoError(t, err)
	assert.Equal(t, "1.2345", amount.String())

	for _, in := range []string{"", "abc", "0", "-3"} {
		_, err := ParseAmount(in)
		assert.Equal(t, errors.InvalidAmount, errors.CodeOf(err), in)
	}
}
