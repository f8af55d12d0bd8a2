package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"payments-engine/internal/errors"
)

type (
	ClientID      uint16
	TransactionID uint32
)

// Kind is the lifecycle state of a transaction, and the action a command asks for.
type Kind uint8

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeBack
)

var kindNames = map[Kind]string{
	KindDeposit:    "deposit",
	KindWithdrawal: "withdrawal",
	KindDispute:    "dispute",
	KindResolve:    "resolve",
	KindChargeBack: "chargeback",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeBack}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsRoot reports whether k may create a new ledger entry.
func (k Kind) IsRoot() bool {
	return k == KindDeposit || k == KindWithdrawal
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind maps the wire name of a transaction type to its Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, errors.NewAppErrorf(errors.InvalidInput, "unknown transaction type %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Command is one inbound instruction. Amount is only meaningful for root kinds;
// dispute, resolve and chargeback refer to the amount stored in the ledger.
type Command struct {
	ID     TransactionID
	Client ClientID
	Kind   Kind
	Amount decimal.Decimal
}

// Validate checks the shape of a command before it reaches the engine.
func (c Command) Validate() error {
	if !c.Kind.Valid() {
		return errors.NewAppErrorf(errors.InvalidInput, "unknown transaction kind %d", uint8(c.Kind))
	}

	if c.Kind.IsRoot() && !c.Amount.IsPositive() {
		return errors.NewAppErrorf(errors.InvalidAmount, "%s amount must be positive, got %s", c.Kind, c.Amount)
	}

	return nil
}
