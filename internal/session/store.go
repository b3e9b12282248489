// Package session は顧客セッションの発行・検証・失効管理を提供する。
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/stakeboard/internal/model"
)

// DefaultTimeout はセッション有効期間のデフォルト値。
const DefaultTimeout = 10 * time.Minute

// StoreConfig はStoreの設定。
type StoreConfig struct {
	Timeout time.Duration    // セッション有効期間。0以下の場合はDefaultTimeout
	Now     func() time.Time // 現在時刻の取得関数。テスト用に差し替え可能。nilならtime.Now
}

// Store は顧客セッションをメモリ上で管理する。
// 顧客ID→セッションとトークン→顧客IDの2つのインデックスを持ち、
// 両者は常に同一のクリティカルセクション内で更新される。
// どちらか一方だけが見える瞬間は存在しない。
type Store struct {
	mu         sync.RWMutex
	byCustomer map[int64]*model.Session
	byToken    map[string]int64

	timeout time.Duration
	now     func() time.Time
}

// NewStore は新しいStoreを生成する。
func NewStore(cfg StoreConfig) *Store {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		byCustomer: make(map[int64]*model.Session),
		byToken:    make(map[string]int64),
		timeout:    cfg.Timeout,
		now:        cfg.Now,
	}
}

// GetOrCreate は顧客の有効なセッショントークンを返す。
// 有効なセッションが既に存在する場合は同じトークンを返す（冪等）。
// 存在しないか失効している場合のみ新しいトークンを発行する。
// 同一顧客への並行呼び出しでも現行トークンは常にただ1つになる。
func (s *Store) GetOrCreate(customerID int64) string {
	now := s.now()

	// 読み取りロックでの早期リターン（ホットパス: 大半の呼び出しは既存セッションに当たる）
	s.mu.RLock()
	if sess, ok := s.byCustomer[customerID]; ok && !sess.IsExpired(now) {
		token := sess.Token
		s.mu.RUnlock()
		return token
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// ダブルチェック: ロック取得までの間に他のゴルーチンが発行している可能性がある
	if sess, ok := s.byCustomer[customerID]; ok && !sess.IsExpired(now) {
		return sess.Token
	}

	// 失効済みセッションの旧トークンを逆引きインデックスから外す
	if old, ok := s.byCustomer[customerID]; ok {
		delete(s.byToken, old.Token)
	}

	sess := &model.Session{
		Token:      newToken(),
		CustomerID: customerID,
		ExpiresAt:  now.Add(s.timeout),
	}
	s.byCustomer[customerID] = sess
	s.byToken[sess.Token] = customerID

	return sess.Token
}

// IsValid はトークンが既知かつ未失効のセッションを指しているかを返す。
// 不明なトークンと失効したトークンは区別せず、どちらもfalseになる。
func (s *Store) IsValid(token string) bool {
	_, ok := s.CustomerID(token)
	return ok
}

// CustomerID はトークンをセッション所有者の顧客IDに解決する。
// トークンが不明または失効している場合は第2戻り値がfalseになる。
func (s *Store) CustomerID(token string) (int64, bool) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	customerID, ok := s.byToken[token]
	if !ok {
		return 0, false
	}

	sess, ok := s.byCustomer[customerID]
	if !ok || sess.Token != token || sess.IsExpired(now) {
		return 0, false
	}

	return customerID, true
}

// Sweep は失効したセッションを両インデックスから削除し、削除件数を返す。
// 定期実行を想定しているが、リクエスト処理とは並行に安全に呼び出せる。
// 有効なセッションを削除することはない。
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for customerID, sess := range s.byCustomer {
		if sess.IsExpired(now) {
			delete(s.byCustomer, customerID)
			delete(s.byToken, sess.Token)
			removed++
		}
	}
	return removed
}

// Len は現在保持しているセッション数（失効済み未掃除分を含む）を返す。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCustomer)
}

// newToken は128ビットのランダム値から32文字の16進トークンを生成する。
// トークンは不透明で、内部の格納方法や顧客IDとは無関係。
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
