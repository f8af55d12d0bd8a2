package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"payments-engine/internal/domain"
	"payments-engine/internal/errors"
	"payments-engine/internal/service"
)

type TransactionHandler struct {
	engine *service.PaymentsEngine
}

func NewTransactionHandler(engine *service.PaymentsEngine) *TransactionHandler {
	return &TransactionHandler{
		engine: engine,
	}
}

type TransactionRequest struct {
	Type   string `json:"type"`
	Client uint16 `json:"client"`
	TxID   uint32 `json:"tx"`
	Amount string `json:"amount,omitempty"`
}

type TransactionResponse struct {
	TxID   uint32 `json:"tx"`
	Client uint16 `json:"client"`
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	kind, err := domain.ParseKind(req.Type)
	if err != nil {
		writeFailure(w, err)
		return
	}

	cmd := domain.Command{
		ID:     domain.TransactionID(req.TxID),
		Client: domain.ClientID(req.Client),
		Kind:   kind,
		Amount: decimal.Zero,
	}
	if kind.IsRoot() {
		amount, err := domain.ParseAmount(req.Amount)
		if err != nil {
			writeFailure(w, err)
			return
		}
		cmd.Amount = amount
	}

	txn, err := h.engine.Process(r.Context(), cmd)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TransactionResponse{
		TxID:   uint32(txn.ID),
		Client: uint16(txn.Client),
		Type:   txn.Kind.String(),
		Amount: txn.Amount.String(),
	})
}
