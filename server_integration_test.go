package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	initDB()
	runMigrations()
	seedDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

func loginAs(t *testing.T, r *gin.Engine, username, password string) string {
	resp := performRequest(r, http.MethodPost, "/login", jsonBody(map[string]string{"username": username, "password": password}), "")
	if resp.Code != 200 {
		t.Fatalf("login %s failed status=%d body=%s", username, resp.Code, resp.Body.String())
	}
	var out map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", out)
	}
	return token
}

// countMovements returns how many audit entries /movements reports for query.
func countMovements(t *testing.T, r *gin.Engine, token, query string) int {
	t.Helper()
	resp := performRequest(r, http.MethodGet, "/movements"+query, nil, token)
	if resp.Code != 200 {
		t.Fatalf("movements %s failed status=%d body=%s", query, resp.Code, resp.Body.String())
	}
	var out struct {
		Movements []json.RawMessage `json:"movements"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	return len(out.Movements)
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	r := setupTestServer(t)

	resp := performRequest(r, http.MethodGet, "/clients", nil, "")
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302 for unauthenticated client listing, got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); !strings.Contains(loc, "/login") {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	r := setupTestServer(t)

	name := fmt.Sprintf("dupuser-%d", time.Now().UnixNano())
	body := map[string]string{"username": name, "password": "pass1"}
	resp := performRequest(r, http.MethodPost, "/register", jsonBody(body), "")
	if resp.Code != 200 {
		t.Fatalf("first register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/register", jsonBody(body), "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d body=%s", resp.Code, resp.Body.String())
	}
	// first account still works
	loginAs(t, r, name, "pass1")
}

func TestShortPasswordRejected(t *testing.T) {
	r := setupTestServer(t)

	name := fmt.Sprintf("shortpw-%d", time.Now().UnixNano())
	resp := performRequest(r, http.MethodPost, "/register", jsonBody(map[string]string{"username": name, "password": "abc"}), "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("short password: expected 400, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	admin := loginAs(t, r, "admin", "admin")

	// 1. Create client
	doc := fmt.Sprintf("doc-%d", time.Now().UnixNano())
	resp := performRequest(r, http.MethodPost, "/clients", jsonBody(map[string]string{"name": "John Doe", "document": doc}), admin)
	if resp.Code != 200 {
		t.Fatalf("create client failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var created map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &created)
	clientID := int(created["id"].(float64))

	// 2. Duplicate document is rejected
	resp = performRequest(r, http.MethodPost, "/clients", jsonBody(map[string]string{"name": "Other", "document": doc}), admin)
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate document: expected 409, got %d", resp.Code)
	}

	// 3. Add two debts and one payment
	base := fmt.Sprintf("/clients/%d", clientID)
	for _, amount := range []float64{100.0, 50.0} {
		resp = performRequest(r, http.MethodPost, base+"/debts", jsonBody(map[string]any{"amount": amount, "description": "merchandise"}), admin)
		if resp.Code != 200 {
			t.Fatalf("add debt failed status=%d body=%s", resp.Code, resp.Body.String())
		}
	}
	resp = performRequest(r, http.MethodPost, base+"/payments", jsonBody(map[string]any{"amount": 80.0, "method": "cash"}), admin)
	if resp.Code != 200 {
		t.Fatalf("add payment failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 4. Balance = 100 + 50 - 80
	resp = performRequest(r, http.MethodGet, base, nil, admin)
	if resp.Code != 200 {
		t.Fatalf("get client failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var detail struct {
		Balance decimal.Decimal `json:"balance"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &detail)
	if !detail.Balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("balance = %s, want 70", detail.Balance)
	}

	// 5. Negative amount is rejected before any mutation; the audit trail
	// must not grow for a failed action
	clientQuery := fmt.Sprintf("?client_id=%d", clientID)
	before := countMovements(t, r, admin, clientQuery)
	resp = performRequest(r, http.MethodPost, base+"/debts", jsonBody(map[string]any{"amount": -5.0, "description": "bad"}), admin)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("negative debt: expected 400, got %d", resp.Code)
	}
	if after := countMovements(t, r, admin, clientQuery); after != before {
		t.Fatalf("audit count changed on rejected mutation: %d -> %d", before, after)
	}

	// 6. Cash income (admin) and withdrawal
	resp = performRequest(r, http.MethodPost, "/cash/incomes", jsonBody(map[string]any{"amount": 20.0, "description": "float"}), admin)
	if resp.Code != 200 {
		t.Fatalf("cash income failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/cash/withdrawals", jsonBody(map[string]any{"amount": 10.0, "description": "supplies"}), admin)
	if resp.Code != 200 {
		t.Fatalf("cash withdrawal failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 7. Drawer total for today includes the cash payment and both movements
	resp = performRequest(r, http.MethodGet, "/cash/drawer?date="+time.Now().Format("2006-01-02"), nil, admin)
	if resp.Code != 200 {
		t.Fatalf("drawer failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 8. Movements for this client: sorted desc, with totals
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/movements?client_id=%d", clientID), nil, admin)
	if resp.Code != 200 {
		t.Fatalf("movements failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var report struct {
		Movements []struct {
			ClientID  *int      `json:"client_id"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"movements"`
		TotalDebt    decimal.Decimal `json:"total_debt"`
		TotalPayment decimal.Decimal `json:"total_payment"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &report)
	if len(report.Movements) != 4 { // create_client + 2 debts + 1 payment
		t.Fatalf("expected 4 movements for client, got %d", len(report.Movements))
	}
	for i := 1; i < len(report.Movements); i++ {
		if report.Movements[i].Timestamp.After(report.Movements[i-1].Timestamp) {
			t.Fatal("movements not sorted by timestamp descending")
		}
	}
	for _, m := range report.Movements {
		if m.ClientID == nil || *m.ClientID != clientID {
			t.Fatalf("client filter leaked a foreign entry: %+v", m)
		}
	}
	if !report.TotalDebt.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("total_debt = %s, want 150", report.TotalDebt)
	}
	if !report.TotalPayment.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("total_payment = %s, want 80", report.TotalPayment)
	}

	// 9. Date-range filter is inclusive on both edges: everything for this
	// client was recorded today, so start=end=today keeps all of it and a
	// range ending yesterday keeps none
	today := time.Now().Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	rangeQuery := fmt.Sprintf("?client_id=%d&start=%s&end=%s", clientID, today, today)
	if n := countMovements(t, r, admin, rangeQuery); n != 4 {
		t.Fatalf("start=end=today should include today's 4 entries, got %d", n)
	}
	rangeQuery = fmt.Sprintf("?client_id=%d&start=%s&end=%s", clientID, yesterday, yesterday)
	if n := countMovements(t, r, admin, rangeQuery); n != 0 {
		t.Fatalf("yesterday's range should exclude today's entries, got %d", n)
	}

	// 10. Ordinary users cannot record incomes or delete clients
	uname := fmt.Sprintf("clerk-%d", time.Now().UnixNano())
	resp = performRequest(r, http.MethodPost, "/register", jsonBody(map[string]string{"username": uname, "password": "pass1"}), "")
	if resp.Code != 200 {
		t.Fatalf("register clerk failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	clerk := loginAs(t, r, uname, "pass1")
	resp = performRequest(r, http.MethodPost, "/cash/incomes", jsonBody(map[string]any{"amount": 1.0}), clerk)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("clerk income: expected 403, got %d", resp.Code)
	}
	resp = performRequest(r, http.MethodDelete, base, nil, clerk)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("clerk delete: expected 403, got %d", resp.Code)
	}
	// but withdrawals under their own id are fine
	resp = performRequest(r, http.MethodPost, "/cash/withdrawals", jsonBody(map[string]any{"amount": 2.0, "description": "change"}), clerk)
	if resp.Code != 200 {
		t.Fatalf("clerk withdrawal failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 11. Admin deletes the client; detail turns 404 and its trail is gone
	resp = performRequest(r, http.MethodDelete, base, nil, admin)
	if resp.Code != 200 {
		t.Fatalf("delete client failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, base, nil, admin)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("deleted client detail: expected 404, got %d", resp.Code)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
	runMigrations()
	runMigrations() // applying twice must be a no-op
	requireMigrated()
}
