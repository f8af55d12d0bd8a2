package csvio

import (
	"encoding/csv"
	"io"
	"strconv"

	"payments-engine/internal/domain"
)

var statementHeader = []string{"client", "available", "held", "total", "locked"}

// WriteStatements writes one row per account, in the order given.
func WriteStatements(w io.Writer, accounts []domain.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(statementHeader); err != nil {
		return err
	}
	for _, acc := range accounts {
		row := []string{
			strconv.FormatUint(uint64(acc.Client), 10),
			acc.Available.String(),
			acc.Held.String(),
			acc.Total().String(),
			strconv.FormatBool(acc.Locked),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
