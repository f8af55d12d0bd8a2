// Package csvio reads transaction commands from CSV and writes account
// statements back out.
package csvio

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"payments-engine/internal/domain"
	"payments-engine/internal/errors"
)

var requiredColumns = []string{"type", "client", "tx"}

// RowError is returned for a row that cannot be turned into a command. The
// reader stays usable after a RowError.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Reader decodes rows of type,client,tx,amount. Columns are located by header
// name and surrounding whitespace is ignored.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
}

func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewAppError(errors.InvalidInput, "missing csv header")
		}
		return nil, errors.NewAppError(errors.InvalidInput, "failed to read csv header").WithDetails(err.Error())
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, errors.NewAppErrorf(errors.InvalidInput, "csv header is missing column %q", name)
		}
	}

	return &Reader{csv: cr, columns: columns}, nil
}

// Next returns the next command, a *RowError for a malformed row, or io.EOF.
func (r *Reader) Next() (domain.Command, error) {
	record, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return domain.Command{}, io.EOF
		}
		var parseErr *csv.ParseError
		if stderrors.As(err, &parseErr) {
			return domain.Command{}, &RowError{Line: parseErr.Line, Err: errors.NewAppError(errors.InvalidInput, "malformed csv row").WithDetails(parseErr.Err.Error())}
		}
		return domain.Command{}, err
	}

	line, _ := r.csv.FieldPos(0)
	cmd, err := r.decode(record)
	if err != nil {
		return domain.Command{}, &RowError{Line: line, Err: err}
	}
	return cmd, nil
}

func (r *Reader) field(record []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (r *Reader) decode(record []string) (domain.Command, error) {
	kind, err := domain.ParseKind(r.field(record, "type"))
	if err != nil {
		return domain.Command{}, err
	}

	client, err := strconv.ParseUint(r.field(record, "client"), 10, 16)
	if err != nil {
		return domain.Command{}, errors.NewAppErrorf(errors.InvalidInput, "invalid client %q", r.field(record, "client")).WithDetails(err.Error())
	}

	tx, err := strconv.ParseUint(r.field(record, "tx"), 10, 32)
	if err != nil {
		return domain.Command{}, errors.NewAppErrorf(errors.InvalidInput, "invalid tx %q", r.field(record, "tx")).WithDetails(err.Error())
	}

	cmd := domain.Command{
		ID:     domain.TransactionID(tx),
		Client: domain.ClientID(client),
		Kind:   kind,
		Amount: decimal.Zero,
	}

	if kind.IsRoot() {
		amount, err := domain.ParseAmount(r.field(record, "amount"))
		if err != nil {
			return domain.Command{}, err
		}
		cmd.Amount = amount
	}

	return cmd, nil
}
