package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/stakeboard/internal/model"
	"github.com/hitoshi/stakeboard/internal/stake"
)

// maxStakeBodySize は賭け金ボディの最大バイト数。
// 10進整数1つしか入らないため、余裕を持たせても小さな値でよい。
const maxStakeBodySize = 64

// SessionResolver はトークンを顧客IDに解決するインターフェース。
// session.Storeの部分集合として定義する。
type SessionResolver interface {
	// CustomerID はトークンを所有者の顧客IDに解決する。
	// 不明・失効トークンはどちらもfalseを返す。
	CustomerID(token string) (int64, bool)
}

// StakeRecorder は賭け金の記録インターフェース。stake.Ledgerの部分集合。
type StakeRecorder interface {
	Record(offerID, customerID, stake int64)
}

// LeaderboardReader はリーダーボードの読み取りインターフェース。stake.Ledgerの部分集合。
type LeaderboardReader interface {
	TopStakes(offerID int64) []model.StakeEntry
}

// StakeMetrics は賭け金記録のメトリクス記録インターフェース。
type StakeMetrics interface {
	RecordStake()
}

// StakeHandler は賭け金の記録とリーダーボード提供のHTTPハンドラー。
type StakeHandler struct {
	sessions SessionResolver
	recorder StakeRecorder
	reader   LeaderboardReader
	metrics  StakeMetrics
}

// NewStakeHandler はStakeHandlerを生成する。
func NewStakeHandler(sessions SessionResolver, recorder StakeRecorder, reader LeaderboardReader, metrics StakeMetrics) *StakeHandler {
	return &StakeHandler{
		sessions: sessions,
		recorder: recorder,
		reader:   reader,
		metrics:  metrics,
	}
}

// Record は賭け金を記録する。
// POST /{betofferId}/stake?sessionkey=<token> ボディは10進整数の賭け金。
// 成功時は200と空ボディを返す。
func (h *StakeHandler) Record(w http.ResponseWriter, r *http.Request) {
	// 1. オファーIDの解析
	offerID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid bet offer id", http.StatusBadRequest)
		return
	}

	// 2. セッションキーの検証（欠落は400、無効・失効は401）
	if !r.URL.Query().Has("sessionkey") {
		http.Error(w, "missing sessionkey parameter", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("sessionkey")

	customerID, ok := h.sessions.CustomerID(token)
	if !ok {
		http.Error(w, "invalid or expired session", http.StatusUnauthorized)
		return
	}

	// 3. 賭け金の解析（非負の10進整数のみ受理）
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStakeBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	stakeValue, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil || stakeValue < 0 {
		http.Error(w, "invalid stake value", http.StatusBadRequest)
		return
	}

	// 4. 記録（レジャー側は解決済み顧客IDのみを受け取る）
	h.recorder.Record(offerID, customerID, stakeValue)

	if h.metrics != nil {
		h.metrics.RecordStake()
	}

	w.WriteHeader(http.StatusOK)
}

// HighStakes はオファーの上位20件の最高賭け金をCSVで返す。
// GET /{betofferId}/highstakes
// レスポンスは「customerId=stake,...」の降順CSV。エントリがなければ空文字列。
func (h *StakeHandler) HighStakes(w http.ResponseWriter, r *http.Request) {
	offerID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid bet offer id", http.StatusBadRequest)
		return
	}

	csv := stake.FormatCSV(h.reader.TopStakes(offerID))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(csv))
}
