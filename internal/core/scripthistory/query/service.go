// Package query 确认历史查询：参数校验、脚本键规范化与分页
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	scripthistoryconfig "github.com/weisyn/scriptindex/internal/config/scripthistory"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/metrics"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/scriptkey"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

// Service 查询门面
//
// 校验顺序：脚本类型 → 十六进制 → payload 长度 → page/page_size 范围 → page_size 上下限。
// 除存储快照外没有其他状态。
type Service struct {
	store           scripthistory.HistoryStore
	bounds          Bounds
	defaultPageSize uint32
	params          *chaincfg.Params
	logger          log.Logger
}

var _ scripthistory.QueryService = (*Service)(nil)

// New 创建查询服务
func New(store scripthistory.HistoryStore, cfg *scripthistoryconfig.Config, logger log.Logger) (*Service, error) {
	if cfg == nil {
		cfg = scripthistoryconfig.New(nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}
	opts := cfg.GetOptions()
	return &Service{
		store:           store,
		bounds:          Bounds{Min: opts.MinPageSize, Max: opts.MaxPageSize},
		defaultPageSize: opts.DefaultPageSize,
		params:          params,
		logger:          logger,
	}, nil
}

// ConfirmedHistory 查询脚本的确认交易历史
func (s *Service) ConfirmedHistory(ctx context.Context, q types.HistoryQuery) (*types.Page, error) {
	return s.observe(func() (*types.Page, error) {
		key, err := scriptkey.Normalize(q.ScriptType, q.PayloadHex)
		if err != nil {
			return nil, err
		}
		return s.historyForKey(ctx, key, q.Page, q.PageSize)
	})
}

// ConfirmedHistoryForAddress 按地址查询（P2PKH / P2SH / P2PK）
func (s *Service) ConfirmedHistoryForAddress(ctx context.Context, addr string, page, pageSize *uint64) (*types.Page, error) {
	return s.observe(func() (*types.Page, error) {
		key, err := scriptkey.FromAddress(addr, s.params)
		if err != nil {
			return nil, err
		}
		return s.historyForKey(ctx, key, page, pageSize)
	})
}

// ConfirmedHistoryRequest 按查询字符串形式的参数查询
//
// 脚本类型与 payload 先于分页参数校验。
func (s *Service) ConfirmedHistoryRequest(ctx context.Context, scriptType, payloadHex string, raw RawParams) (*types.Page, error) {
	return s.observe(func() (*types.Page, error) {
		key, err := scriptkey.Normalize(scriptType, payloadHex)
		if err != nil {
			return nil, err
		}
		page, pageSize, err := raw.parse()
		if err != nil {
			return nil, err
		}
		return s.historyForKey(ctx, key, page, pageSize)
	})
}

// ConfirmedHistoryForAddressRequest 按地址与查询字符串参数查询
func (s *Service) ConfirmedHistoryForAddressRequest(ctx context.Context, addr string, raw RawParams) (*types.Page, error) {
	return s.observe(func() (*types.Page, error) {
		key, err := scriptkey.FromAddress(addr, s.params)
		if err != nil {
			return nil, err
		}
		page, pageSize, err := raw.parse()
		if err != nil {
			return nil, err
		}
		return s.historyForKey(ctx, key, page, pageSize)
	})
}

func (s *Service) historyForKey(ctx context.Context, key types.ScriptKey, pageParam, sizeParam *uint64) (*types.Page, error) {
	page, err := narrowParam(ParamPage, pageParam, 0)
	if err != nil {
		return nil, err
	}
	pageSize, err := narrowParam(ParamPageSize, sizeParam, s.defaultPageSize)
	if err != nil {
		return nil, err
	}
	if err := s.bounds.Check(pageSize); err != nil {
		return nil, err
	}

	var result *types.Page
	err = s.store.Lookup(ctx, key, func(snap scripthistory.HistorySnapshot) error {
		var err error
		result, err = Paginate(ctx, snap, page, pageSize)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("读取脚本 %s 历史失败: %w", key, err)
	}
	return result, nil
}

func (s *Service) observe(fn func() (*types.Page, error)) (*types.Page, error) {
	start := time.Now()
	page, err := fn()

	result := metrics.ResultOK
	var qe *types.QueryError
	switch {
	case errors.As(err, &qe):
		result = metrics.ResultInvalid
	case err != nil:
		result = metrics.ResultError
		if s.logger != nil {
			s.logger.Errorf("确认历史查询失败: %v", err)
		}
	}
	metrics.ObserveQuery(result, time.Since(start))
	return page, err
}
