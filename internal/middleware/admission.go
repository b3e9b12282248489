// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"net/http"
)

// Admitter は流入可否を判定するインターフェース。
// sysmon.Gateの部分集合として定義する。
type Admitter interface {
	Admit() bool
}

// overloadedBody は503レスポンスの本文。クライアントは後で再試行できる。
const overloadedBody = "server overloaded, retry later\n"

// NewAdmissionMiddleware は過負荷時に503を返すミドルウェアを返す。
// ルーティングやハンドラーの処理に入る前に判定するため、
// ミドルウェアチェーンの最上位に配置すること。
// 拒否パスはアトミック読み取り1回と固定レスポンスの書き込みのみで完了する。
func NewAdmissionMiddleware(gate Admitter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Admit() {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(overloadedBody))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
