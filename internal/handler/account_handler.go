package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"payments-engine/internal/domain"
	"payments-engine/internal/service"
)

type AccountHandler struct {
	engine *service.PaymentsEngine
}

func NewAccountHandler(engine *service.PaymentsEngine) *AccountHandler {
	return &AccountHandler{
		engine: engine,
	}
}

type AccountResponse struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

func toAccountResponse(acc domain.Account) AccountResponse {
	return AccountResponse{
		Client:    uint16(acc.Client),
		Available: acc.Available.String(),
		Held:      acc.Held.String(),
		Total:     acc.Total().String(),
		Locked:    acc.Locked,
	}
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.engine.Accounts(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, toAccountResponse(acc))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	client, err := parseClientID(mux.Vars(r)["client_id"])
	if err != nil {
		writeFailure(w, err)
		return
	}

	account, err := h.engine.Account(r.Context(), client)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(*account))
}

func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	client, err := parseClientID(mux.Vars(r)["client_id"])
	if err != nil {
		writeFailure(w, err)
		return
	}

	txs, err := h.engine.Transactions(r.Context(), client)
	if err != nil {
		writeFailure(w, err)
		return
	}

	response := make([]TransactionResponse, 0, len(txs))
	for _, txn := range txs {
		response = append(response, TransactionResponse{
			TxID:   uint32(txn.ID),
			Client: uint16(txn.Client),
			Type:   txn.Kind.String(),
			Amount: txn.Amount.String(),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
