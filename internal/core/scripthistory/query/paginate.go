package query

import (
	"context"
	"fmt"

	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

// Paginate 从快照中截取第 page 页（每页 pageSize 条）
//
// 偏移按 64 位计算；超出最后一页时返回空条目与正确的计数。
// 请求范围可以跨越任意多个内部分页，结果与内部分页大小无关。
func Paginate(ctx context.Context, snap scripthistory.HistorySnapshot, page, pageSize uint32) (*types.Page, error) {
	if pageSize == 0 {
		return nil, ValidatePageSize(pageSize)
	}

	numTxs := uint64(snap.NumTxs())
	size := uint64(pageSize)
	result := &types.Page{
		Entries:  []types.HistoryEntry{},
		NumPages: uint32((numTxs + size - 1) / size),
		NumTxs:   uint32(numTxs),
	}

	start := uint64(page) * size
	if start >= numTxs {
		return result, nil
	}
	end := start + size
	if end > numTxs {
		end = numTxs
	}

	ip := uint64(snap.InternalPageSize())
	if ip == 0 {
		return nil, fmt.Errorf("内部分页大小为0")
	}

	result.Entries = make([]types.HistoryEntry, 0, end-start)
	for p := start / ip; p <= (end-1)/ip; p++ {
		entries, err := snap.ReadPage(ctx, uint32(p))
		if err != nil {
			return nil, fmt.Errorf("读取内部分页 %d 失败: %w", p, err)
		}

		base := p * ip
		lo, hi := start, end
		if lo < base {
			lo = base
		}
		if avail := base + uint64(len(entries)); hi > avail {
			hi = avail
		}
		if lo < hi {
			result.Entries = append(result.Entries, entries[lo-base:hi-base]...)
		}
	}

	if uint64(len(result.Entries)) != end-start {
		return nil, fmt.Errorf("快照条目不完整: 期望 %d 条, 实际 %d 条", end-start, len(result.Entries))
	}
	return result, nil
}
