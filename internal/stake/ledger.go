// Package stake はベットオファーごとの最高賭け金の記録とリーダーボード提供を行う。
package stake

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hitoshi/stakeboard/internal/model"
)

// LeaderboardSize はリーダーボードに載る最大エントリ数。
// Trimはこの数を超えた分を定期的に削除してメモリを抑える。
const LeaderboardSize = 20

// offerBook は1つのベットオファーの集計単位。
// オファーごとに独立したロックを持ち、異なるオファーへの書き込みは競合しない。
type offerBook struct {
	mu  sync.RWMutex
	max map[int64]int64 // customerID -> 最高賭け金
}

// Ledger は全オファーの賭け金集計を保持する。
// 外側のロックはオファーマップの構造変更（新規オファー追加）のみを守り、
// 値の更新は各offerBookのロックで行う。
type Ledger struct {
	mu     sync.RWMutex
	offers map[int64]*offerBook
}

// NewLedger は新しいLedgerを生成する。
func NewLedger() *Ledger {
	return &Ledger{
		offers: make(map[int64]*offerBook),
	}
}

// Record は顧客の賭け金を記録する。既存値との最大値のみを保持する
// （可換かつ冪等なマージなので、並行呼び出しはどの順序でも真の最大値に収束する）。
// stakeは非負であることを呼び出し側（リクエスト境界）が保証する。
func (l *Ledger) Record(offerID, customerID, stake int64) {
	book := l.book(offerID)

	book.mu.Lock()
	if cur, ok := book.max[customerID]; !ok || stake > cur {
		book.max[customerID] = stake
	}
	book.mu.Unlock()
}

// TopStakes はオファーの上位エントリを賭け金の降順で返す（最大LeaderboardSize件）。
// 同額の場合は顧客IDの昇順で順序を固定する。未知のオファーは空スライスを返す。
func (l *Ledger) TopStakes(offerID int64) []model.StakeEntry {
	l.mu.RLock()
	book, ok := l.offers[offerID]
	l.mu.RUnlock()
	if !ok {
		return nil
	}

	book.mu.RLock()
	entries := snapshot(book)
	book.mu.RUnlock()

	sortEntries(entries)

	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	return entries
}

// Trim は各オファーについて上位LeaderboardSize件の外にある顧客を削除し、
// 削除した総件数を返す。走査時点で上位に入っているエントリを削除することはない。
// 定期実行を想定しているが、Record/TopStakesと並行に安全に呼び出せる。
func (l *Ledger) Trim() int {
	l.mu.RLock()
	books := make([]*offerBook, 0, len(l.offers))
	for _, book := range l.offers {
		books = append(books, book)
	}
	l.mu.RUnlock()

	removed := 0
	for _, book := range books {
		book.mu.Lock()
		if len(book.max) > LeaderboardSize {
			entries := snapshot(book)
			sortEntries(entries)
			for _, e := range entries[LeaderboardSize:] {
				delete(book.max, e.CustomerID)
				removed++
			}
		}
		book.mu.Unlock()
	}
	return removed
}

// Offers は現在追跡中のオファー数を返す。メトリクスおよびテスト用。
func (l *Ledger) Offers() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.offers)
}

// book はオファーの集計単位を取得する。存在しない場合のみ書き込みロックで生成する。
func (l *Ledger) book(offerID int64) *offerBook {
	l.mu.RLock()
	book, ok := l.offers[offerID]
	l.mu.RUnlock()
	if ok {
		return book
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// ダブルチェック
	if book, ok := l.offers[offerID]; ok {
		return book
	}
	book = &offerBook{max: make(map[int64]int64)}
	l.offers[offerID] = book
	return book
}

// snapshot はbookのロックを保持した状態で集計のコピーを作る。
func snapshot(book *offerBook) []model.StakeEntry {
	entries := make([]model.StakeEntry, 0, len(book.max))
	for customerID, stake := range book.max {
		entries = append(entries, model.StakeEntry{CustomerID: customerID, Stake: stake})
	}
	return entries
}

// sortEntries は賭け金の降順、同額なら顧客IDの昇順に並べる。
func sortEntries(entries []model.StakeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Stake != entries[j].Stake {
			return entries[i].Stake > entries[j].Stake
		}
		return entries[i].CustomerID < entries[j].CustomerID
	})
}

// FormatCSV はエントリ列を「customerId=stake,...」形式のCSVに整形する。
// 空の場合は空文字列を返す。
func FormatCSV(entries []model.StakeEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(e.CustomerID, 10))
		b.WriteByte('=')
		b.WriteString(strconv.FormatInt(e.Stake, 10))
	}
	return b.String()
}
