// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// SessionIssuer はセッションハンドラーが必要とするストアインターフェース。
// session.Storeの部分集合として定義する。
type SessionIssuer interface {
	// GetOrCreate は顧客の有効なセッショントークンを返す（冪等）。
	GetOrCreate(customerID int64) string
}

// SessionMetrics はセッション発行のメトリクス記録インターフェース。
type SessionMetrics interface {
	RecordSessionIssued()
}

// SessionHandler はセッション発行のHTTPハンドラー。
type SessionHandler struct {
	store   SessionIssuer
	metrics SessionMetrics
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(store SessionIssuer, metrics SessionMetrics) *SessionHandler {
	return &SessionHandler{
		store:   store,
		metrics: metrics,
	}
}

// Issue は顧客のセッショントークンを返す。
// GET /{customerId}/session
// レスポンスはトークンの生文字列。顧客IDが数値でない場合は400を返す。
func (h *SessionHandler) Issue(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}

	token := h.store.GetOrCreate(customerID)

	if h.metrics != nil {
		h.metrics.RecordSessionIssued()
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(token))
}

// parseID はパスセグメントの数値IDを解析する。負のIDは受け付けない。
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, fmt.Errorf("negative id: %d", id)
	}
	return id, nil
}
