// Package model はドメインモデルを定義する。
package model

import "time"

// Session は顧客のベッティングセッションを表す。
// トークンは公開される不透明な識別子で、内部の格納位置とは一切結合しない。
type Session struct {
	Token      string
	CustomerID int64
	ExpiresAt  time.Time
}

// IsExpired は指定時刻においてセッションが失効しているかを返す。
// ExpiresAtちょうどの時刻はまだ有効として扱う。
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
