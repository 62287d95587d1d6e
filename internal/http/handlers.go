package http

import (
	"net/http"
	"time"

	"github.com/madalinagriza/flashfinance/internal/category"
	"github.com/madalinagriza/flashfinance/internal/core"
)

type createCategoryRequest struct {
	OwnerID core.OwnerID `json:"owner_id"`
	Name    string       `json:"name"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, err := s.registry.Create(r.Context(), req.OwnerID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	owner := core.OwnerID(r.URL.Query().Get("owner_id"))
	if owner == "" {
		// Administrative listing across owners.
		cats, err := s.registry.ListAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cats)
		return
	}
	refs, err := s.registry.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

type renameCategoryRequest struct {
	OwnerID    core.OwnerID    `json:"owner_id"`
	CategoryID core.CategoryID `json:"category_id"`
	NewName    string          `json:"new_name"`
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req renameCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, err := s.registry.Rename(r.Context(), req.OwnerID, req.CategoryID, req.NewName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

type deleteCategoryRequest struct {
	OwnerID    core.OwnerID    `json:"owner_id"`
	CategoryID core.CategoryID `json:"category_id"`
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	var req deleteCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.registry.Delete(r.Context(), req.OwnerID, req.CategoryID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type transactionRequest struct {
	OwnerID    core.OwnerID    `json:"owner_id"`
	CategoryID core.CategoryID `json:"category_id"`
	TxID       core.TxID       `json:"tx_id"`
	Amount     float64         `json:"amount"`
	TxDate     time.Time       `json:"tx_date"`
}

func (r transactionRequest) entry() core.LedgerEntry {
	return core.LedgerEntry{TxID: r.TxID, Amount: r.Amount, Date: r.TxDate}
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.labeling.RecordTransaction(r.Context(), req.OwnerID, req.CategoryID, req.entry()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

type bulkAddRequest struct {
	OwnerID core.OwnerID `json:"owner_id"`
	Entries []struct {
		CategoryID core.CategoryID `json:"category_id"`
		TxID       core.TxID       `json:"tx_id"`
		Amount     float64         `json:"amount"`
		TxDate     time.Time       `json:"tx_date"`
	} `json:"entries"`
}

func (s *Server) handleBulkAddTransactions(w http.ResponseWriter, r *http.Request) {
	var req bulkAddRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entries := make([]category.BulkEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, category.BulkEntry{
			CategoryID: e.CategoryID,
			Entry:      core.LedgerEntry{TxID: e.TxID, Amount: e.Amount, Date: e.TxDate},
		})
	}
	if err := s.ledger.BulkAddTransactions(r.Context(), req.OwnerID, entries); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"added": len(entries)})
}

type removeTransactionRequest struct {
	OwnerID    core.OwnerID    `json:"owner_id"`
	CategoryID core.CategoryID `json:"category_id"`
	TxID       core.TxID       `json:"tx_id"`
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	var req removeTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.ledger.RemoveTransaction(r.Context(), req.OwnerID, req.CategoryID, req.TxID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type moveTransactionRequest struct {
	OwnerID        core.OwnerID    `json:"owner_id"`
	TxID           core.TxID       `json:"tx_id"`
	FromCategoryID core.CategoryID `json:"from_category_id"`
	ToCategoryID   core.CategoryID `json:"to_category_id"`
}

func (s *Server) handleMoveTransaction(w http.ResponseWriter, r *http.Request) {
	var req moveTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.ledger.MoveTransaction(r.Context(), req.OwnerID, req.TxID, req.FromCategoryID, req.ToCategoryID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

func (s *Server) handleMoveToTrash(w http.ResponseWriter, r *http.Request) {
	var req removeTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.ledger.MoveTransactionToTrash(r.Context(), req.OwnerID, req.CategoryID, req.TxID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "trashed"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := s.ledger.ListTransactions(r.Context(),
		core.OwnerID(q.Get("owner_id")), core.CategoryID(q.Get("category_id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleMetricStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeBadRequest(w, "invalid start: expected RFC3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeBadRequest(w, "invalid end: expected RFC3339 timestamp")
		return
	}
	period, err := core.NewPeriod(start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := s.ledger.GetMetricStats(r.Context(),
		core.OwnerID(q.Get("owner_id")), core.CategoryID(q.Get("category_id")), period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleFindTransaction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	holders, err := s.ledger.FindTransaction(r.Context(),
		core.OwnerID(q.Get("owner_id")), core.TxID(q.Get("tx_id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category_ids": holders})
}

type stageRequest struct {
	UserID     core.OwnerID    `json:"user_id"`
	CategoryID core.CategoryID `json:"category_id"`
	TxID       core.TxID       `json:"tx_id"`
	TxName     string          `json:"tx_name"`
	TxMerchant string          `json:"tx_merchant"`
}

func (r stageRequest) info() core.TransactionInfo {
	return core.TransactionInfo{TxID: r.TxID, Name: r.TxName, Merchant: r.TxMerchant}
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.workspace.Stage(r.Context(), req.UserID, req.CategoryID, req.info()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "staged"})
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.workspace.DiscardUnstagedToTrash(r.Context(), req.UserID, req.info()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "discarded"})
}

type userRequest struct {
	UserID core.OwnerID `json:"user_id"`
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.labeling.FinalizeLabels(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"committed": n})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.workspace.CancelSession(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"discarded": n})
}

func (s *Server) handleStaged(w http.ResponseWriter, r *http.Request) {
	staged, err := s.workspace.Staged(r.Context(), core.OwnerID(r.URL.Query().Get("user_id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, staged)
}

type updateLabelRequest struct {
	UserID     core.OwnerID    `json:"user_id"`
	TxID       core.TxID       `json:"tx_id"`
	CategoryID core.CategoryID `json:"category_id"`
}

func (s *Server) handleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	var req updateLabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lbl, err := s.history.Update(r.Context(), req.UserID, req.TxID, req.CategoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lbl)
}

func (s *Server) handleTrashedLabels(w http.ResponseWriter, r *http.Request) {
	txs, err := s.history.TransactionsInTrash(r.Context(), core.OwnerID(r.URL.Query().Get("user_id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tx_ids": txs})
}

type suggestRequest struct {
	UserID     core.OwnerID `json:"user_id"`
	TxID       core.TxID    `json:"tx_id"`
	TxName     string       `json:"tx_name"`
	TxMerchant string       `json:"tx_merchant"`
}

func (r suggestRequest) info() core.TransactionInfo {
	return core.TransactionInfo{TxID: r.TxID, Name: r.TxName, Merchant: r.TxMerchant}
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ref, err := s.labeling.SuggestCategory(r.Context(), req.UserID, req.info())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleSuggestAndStage(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ref, err := s.labeling.SuggestAndStage(r.Context(), req.UserID, req.info())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}
