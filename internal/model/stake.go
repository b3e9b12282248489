package model

// StakeEntry はあるベットオファーにおける顧客1人分の最高賭け金を表す。
// レジャーは賭け金の履歴を持たず、顧客ごとの最大値のみを保持する。
type StakeEntry struct {
	CustomerID int64
	Stake      int64
}
