package types

// HistoryQuery 确认历史查询参数
//
// Page/PageSize 为 nil 时使用默认值；超过 32 位范围的值会被拒绝。
type HistoryQuery struct {
	ScriptType string
	PayloadHex string
	Page       *uint64
	PageSize   *uint64
}
