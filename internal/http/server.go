// Package http exposes the domain operations as a thin JSON API. The
// handlers parse requests into canonical domain types at the boundary
// and delegate; no domain logic lives here.
package http

import (
	"net/http"
	"time"

	"github.com/madalinagriza/flashfinance/internal/category"
	"github.com/madalinagriza/flashfinance/internal/label"
	"github.com/madalinagriza/flashfinance/internal/log"
	"github.com/madalinagriza/flashfinance/internal/services"
)

type Server struct {
	http.Server
	registry  *category.Registry
	ledger    *category.Ledger
	workspace *label.Workspace
	history   *label.History
	labeling  *services.LabelingService
	logger    *log.Logger
}

func NewServer(
	addr string,
	registry *category.Registry,
	ledger *category.Ledger,
	workspace *label.Workspace,
	history *label.History,
	labeling *services.LabelingService,
	logger *log.Logger,
) *Server {
	s := &Server{
		registry:  registry,
		ledger:    ledger,
		workspace: workspace,
		history:   history,
		labeling:  labeling,
		logger:    logger.WithComponent("http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories/rename", s.handleRenameCategory)
	mux.HandleFunc("POST /api/categories/delete", s.handleDeleteCategory)

	mux.HandleFunc("POST /api/ledger/transactions", s.handleAddTransaction)
	mux.HandleFunc("GET /api/ledger/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/ledger/transactions/bulk", s.handleBulkAddTransactions)
	mux.HandleFunc("POST /api/ledger/transactions/remove", s.handleRemoveTransaction)
	mux.HandleFunc("POST /api/ledger/transactions/move", s.handleMoveTransaction)
	mux.HandleFunc("POST /api/ledger/transactions/trash", s.handleMoveToTrash)
	mux.HandleFunc("GET /api/ledger/stats", s.handleMetricStats)
	mux.HandleFunc("GET /api/ledger/find", s.handleFindTransaction)

	mux.HandleFunc("POST /api/labels/stage", s.handleStage)
	mux.HandleFunc("POST /api/labels/discard", s.handleDiscard)
	mux.HandleFunc("POST /api/labels/finalize", s.handleFinalize)
	mux.HandleFunc("POST /api/labels/cancel", s.handleCancel)
	mux.HandleFunc("GET /api/labels/staged", s.handleStaged)
	mux.HandleFunc("POST /api/labels/update", s.handleUpdateLabel)
	mux.HandleFunc("GET /api/labels/trash", s.handleTrashedLabels)
	mux.HandleFunc("POST /api/labels/suggest", s.handleSuggest)
	mux.HandleFunc("POST /api/labels/suggest-stage", s.handleSuggestAndStage)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
