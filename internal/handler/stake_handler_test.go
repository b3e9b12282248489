package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/stakeboard/internal/model"
)

// --- モック定義 ---

type recordedStake struct {
	offerID    int64
	customerID int64
	stake      int64
}

// mockLedger はStakeRecorder/LeaderboardReaderのモック実装。
type mockLedger struct {
	records []recordedStake
	topFn   func(offerID int64) []model.StakeEntry
}

func (m *mockLedger) Record(offerID, customerID, stake int64) {
	m.records = append(m.records, recordedStake{offerID, customerID, stake})
}

func (m *mockLedger) TopStakes(offerID int64) []model.StakeEntry {
	if m.topFn != nil {
		return m.topFn(offerID)
	}
	return nil
}

// newStakeTestRouter はステークハンドラーだけをマウントしたルーターを作る。
func newStakeTestRouter(h *StakeHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/{id}/stake", h.Record)
	r.Get("/{id}/highstakes", h.HighStakes)
	return r
}

func validResolver(customerID int64) *mockSessionStore {
	return &mockSessionStore{
		customerIDFn: func(token string) (int64, bool) {
			if token == "goodtoken" {
				return customerID, true
			}
			return 0, false
		},
	}
}

// --- POST /{id}/stake のテスト ---

func TestStakeHandler_Record_Success(t *testing.T) {
	ledger := &mockLedger{}
	met := &countingMetrics{}
	router := newStakeTestRouter(NewStakeHandler(validResolver(99), ledger, ledger, met))

	req := httptest.NewRequest(http.MethodPost, "/7/stake?sessionkey=goodtoken", strings.NewReader("4500"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}

	if len(ledger.records) != 1 {
		t.Fatalf("records = %d, want 1", len(ledger.records))
	}
	got := ledger.records[0]
	if got.offerID != 7 || got.customerID != 99 || got.stake != 4500 {
		t.Errorf("recorded = %+v, want {7 99 4500}", got)
	}
	if met.stakesRecorded != 1 {
		t.Errorf("stakesRecorded = %d, want 1", met.stakesRecorded)
	}
}

func TestStakeHandler_Record_MissingSessionKeyIs400(t *testing.T) {
	ledger := &mockLedger{}
	router := newStakeTestRouter(NewStakeHandler(validResolver(1), ledger, ledger, nil))

	req := httptest.NewRequest(http.MethodPost, "/7/stake", strings.NewReader("100"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Result().StatusCode)
	}
	if len(ledger.records) != 0 {
		t.Error("ledger must not be touched on rejected request")
	}
}

func TestStakeHandler_Record_InvalidSessionIs401(t *testing.T) {
	ledger := &mockLedger{}
	router := newStakeTestRouter(NewStakeHandler(validResolver(1), ledger, ledger, nil))

	tests := []string{
		"/7/stake?sessionkey=unknowntoken",
		"/7/stake?sessionkey=", // 空のキーは無効なセッションとして扱う
	}
	for _, path := range tests {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("100"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, w.Result().StatusCode)
		}
	}
	if len(ledger.records) != 0 {
		t.Error("ledger must not be touched on unauthorized request")
	}
}

func TestStakeHandler_Record_MalformedInputIs400(t *testing.T) {
	ledger := &mockLedger{}
	router := newStakeTestRouter(NewStakeHandler(validResolver(1), ledger, ledger, nil))

	tests := []struct {
		name string
		path string
		body string
	}{
		{"non-numeric offer id", "/abc/stake?sessionkey=goodtoken", "100"},
		{"empty body", "/7/stake?sessionkey=goodtoken", ""},
		{"non-numeric stake", "/7/stake?sessionkey=goodtoken", "lots"},
		{"negative stake", "/7/stake?sessionkey=goodtoken", "-50"},
		{"decimal stake", "/7/stake?sessionkey=goodtoken", "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Result().StatusCode)
			}
		})
	}

	if len(ledger.records) != 0 {
		t.Error("ledger must not be touched on malformed request")
	}
}

func TestStakeHandler_Record_WhitespaceAroundStakeIsAccepted(t *testing.T) {
	ledger := &mockLedger{}
	router := newStakeTestRouter(NewStakeHandler(validResolver(1), ledger, ledger, nil))

	req := httptest.NewRequest(http.MethodPost, "/7/stake?sessionkey=goodtoken", strings.NewReader("250\n"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Result().StatusCode)
	}
	if len(ledger.records) != 1 || ledger.records[0].stake != 250 {
		t.Errorf("records = %+v, want single stake 250", ledger.records)
	}
}

// --- GET /{id}/highstakes のテスト ---

func TestStakeHandler_HighStakes_ReturnsCSV(t *testing.T) {
	ledger := &mockLedger{
		topFn: func(offerID int64) []model.StakeEntry {
			if offerID != 7 {
				t.Errorf("offerID = %d, want 7", offerID)
			}
			return []model.StakeEntry{
				{CustomerID: 2, Stake: 500},
				{CustomerID: 3, Stake: 300},
				{CustomerID: 1, Stake: 100},
			}
		},
	}
	router := newStakeTestRouter(NewStakeHandler(validResolver(1), ledger, ledger, nil))

	req := httptest.NewRequest(http.MethodGet, "/7/highstakes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Result().StatusCode)
	}
	if w.Body.String() != "2=500,3=300,1=100" {
		t.Errorf("body = %q, want %q", w.Body.String(), "2=500,3=300,1=100")
	}
}

func TestStakeHandler_HighStakes_UnknownOfferReturnsEmptyBody(t *testing.T) {
	ledger := &mockLedger{}
	router := newStakeTestRouter(NewStakeHandler(validResolver(1), ledger, ledger, nil))

	req := httptest.NewRequest(http.MethodGet, "/404/highstakes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Result().StatusCode)
	}
	if w.Body.String() != "" {
		t.Errorf("body = %q, want empty string", w.Body.String())
	}
}

func TestStakeHandler_HighStakes_InvalidOfferID(t *testing.T) {
	ledger := &mockLedger{}
	router := newStakeTestRouter(NewStakeHandler(validResolver(1), ledger, ledger, nil))

	req := httptest.NewRequest(http.MethodGet, "/notanumber/highstakes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Result().StatusCode)
	}
}
