package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/madalinagriza/flashfinance/internal/category"
	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/docstore/memory"
	"github.com/madalinagriza/flashfinance/internal/label"
	"github.com/madalinagriza/flashfinance/internal/log"
	"github.com/madalinagriza/flashfinance/internal/services"
)

type fixedSuggester struct {
	ref core.CategoryRef
	err error
}

func (f *fixedSuggester) Suggest(context.Context, core.OwnerID, []core.CategoryRef, core.TransactionInfo) (core.CategoryRef, error) {
	return f.ref, f.err
}

func newTestServer(t *testing.T, suggester services.Suggester) *httptest.Server {
	t.Helper()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	store := memory.New()
	registry := category.NewRegistry(store, logger)
	ledger := category.NewLedger(store, logger)
	history := label.NewHistory(store, logger)
	workspace := label.NewWorkspace(store, history, logger)
	labeling := services.NewLabelingService(registry, ledger, workspace, history, suggester, nil, logger)

	srv := NewServer(":0", registry, ledger, workspace, history, labeling, logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestCategoryEndpoints(t *testing.T) {
	ts := newTestServer(t, &fixedSuggester{})

	resp, body := postJSON(t, ts.URL+"/api/categories", map[string]string{
		"owner_id": "alice", "name": "Rent",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var cat core.Category
	if err := json.Unmarshal(body, &cat); err != nil || cat.ID == "" {
		t.Fatalf("create body = %s (%v)", body, err)
	}

	// Duplicate name maps to 409.
	resp, _ = postJSON(t, ts.URL+"/api/categories", map[string]string{
		"owner_id": "alice", "name": "Rent",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d", resp.StatusCode)
	}

	var refs []core.CategoryRef
	getJSON(t, ts.URL+"/api/categories?owner_id=alice", &refs)
	if len(refs) != 1 || refs[0].Name != "Rent" {
		t.Fatalf("list = %+v", refs)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	ts := newTestServer(t, &fixedSuggester{})

	_, body := postJSON(t, ts.URL+"/api/categories", map[string]string{"owner_id": "alice", "name": "Rent"})
	var cat core.Category
	if err := json.Unmarshal(body, &cat); err != nil {
		t.Fatalf("decode category: %v", err)
	}

	resp, body := postJSON(t, ts.URL+"/api/ledger/transactions", map[string]any{
		"owner_id": "alice", "category_id": cat.ID,
		"tx_id": "tx1", "amount": 1200.50, "tx_date": "2023-01-15T00:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d: %s", resp.StatusCode, body)
	}

	// Unknown category maps to 404.
	resp, _ = postJSON(t, ts.URL+"/api/ledger/transactions", map[string]any{
		"owner_id": "alice", "category_id": "nope",
		"tx_id": "tx2", "amount": 1, "tx_date": "2023-01-15T00:00:00Z",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown category status = %d", resp.StatusCode)
	}

	var stats core.MetricStats
	url := fmt.Sprintf("%s/api/ledger/stats?owner_id=alice&category_id=%s&start=2023-01-01T00:00:00Z&end=2023-01-31T00:00:00Z", ts.URL, cat.ID)
	getJSON(t, url, &stats)
	if stats.TransactionCount != 1 || stats.Days != 31 || stats.TotalAmount != 1200.50 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestLabelEndpoints(t *testing.T) {
	ts := newTestServer(t, &fixedSuggester{})

	_, body := postJSON(t, ts.URL+"/api/categories", map[string]string{"owner_id": "u1", "name": "Groceries"})
	var cat core.Category
	if err := json.Unmarshal(body, &cat); err != nil {
		t.Fatalf("decode category: %v", err)
	}

	resp, body := postJSON(t, ts.URL+"/api/labels/stage", map[string]any{
		"user_id": "u1", "category_id": cat.ID,
		"tx_id": "tx1", "tx_name": "SHOP", "tx_merchant": "Lidl",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("stage status = %d: %s", resp.StatusCode, body)
	}

	// Re-stage maps to 409.
	resp, _ = postJSON(t, ts.URL+"/api/labels/stage", map[string]any{
		"user_id": "u1", "category_id": cat.ID,
		"tx_id": "tx1", "tx_name": "SHOP", "tx_merchant": "Lidl",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("re-stage status = %d", resp.StatusCode)
	}

	resp, body = postJSON(t, ts.URL+"/api/labels/finalize", map[string]string{"user_id": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize status = %d: %s", resp.StatusCode, body)
	}
	var result map[string]int
	if err := json.Unmarshal(body, &result); err != nil || result["committed"] != 1 {
		t.Fatalf("finalize body = %s (%v)", body, err)
	}

	var staged []label.Staged
	getJSON(t, ts.URL+"/api/labels/staged?user_id=u1", &staged)
	if len(staged) != 0 {
		t.Fatalf("staged after finalize = %+v", staged)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	suggester := &fixedSuggester{ref: core.CategoryRef{ID: "cat-1", Name: "Groceries"}}
	ts := newTestServer(t, suggester)

	if _, body := postJSON(t, ts.URL+"/api/categories", map[string]string{"owner_id": "u1", "name": "Groceries"}); body == nil {
		t.Fatal("create failed")
	}

	resp, body := postJSON(t, ts.URL+"/api/labels/suggest", map[string]string{
		"user_id": "u1", "tx_id": "tx1", "tx_name": "SHOP", "tx_merchant": "Lidl",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggest status = %d: %s", resp.StatusCode, body)
	}
	var ref core.CategoryRef
	if err := json.Unmarshal(body, &ref); err != nil || ref.ID != "cat-1" {
		t.Fatalf("suggest body = %s (%v)", body, err)
	}

	// Classifier outage maps to 503.
	suggester.err = core.ErrSuggestionUnavailable
	resp, _ = postJSON(t, ts.URL+"/api/labels/suggest", map[string]string{
		"user_id": "u1", "tx_id": "tx2", "tx_name": "X", "tx_merchant": "Y",
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("outage status = %d", resp.StatusCode)
	}
}
