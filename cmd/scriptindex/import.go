package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcd/wire"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/weisyn/scriptindex/internal/app"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/chainsync"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
)

// maxBlockLine 单行十六进制区块的最大长度（4MB 区块）
const maxBlockLine = 8 << 20

var importFlags struct {
	noSpends bool
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "从文件导入区块",
	Long: `按链顺序导入区块，每行一个十六进制编码的序列化区块。

已索引的区块会被跳过；其余区块的高度取当前链尖高度 + 1，
父哈希必须等于当前链尖。花费方脚本由本次导入的区块解析，
从中间高度开始导入时请使用 --no-spends。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, closeFn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		var (
			syncer *chainsync.Syncer
			store  scripthistory.HistoryStore
		)
		opts, err := appOptions(app.WithoutAPI(), app.WithFxOptions(fx.Populate(&syncer, &store)))
		if err != nil {
			return err
		}
		running, err := app.Start(opts...)
		if err != nil {
			return err
		}
		defer func() { _ = running.Stop() }()

		var prevOuts *chainsync.PrevOutCache
		var resolver scripthistory.PrevOutResolver
		if !importFlags.noSpends {
			prevOuts = chainsync.NewPrevOutCache()
			resolver = prevOuts
		}

		ctx := cmd.Context()
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxBlockLine)

		var imported, skipped, line int
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}

			msg, err := decodeBlock(text)
			if err != nil {
				return fmt.Errorf("第 %d 行: %w", line, err)
			}

			known, err := store.HasBlock(ctx, msg.BlockHash())
			if err != nil {
				return err
			}
			if known {
				if prevOuts != nil {
					prevOuts.AddBlock(msg)
				}
				skipped++
				continue
			}

			tip, err := store.IndexedTip(ctx)
			if err != nil {
				return err
			}
			var height uint32
			if tip != nil {
				height = tip.Height + 1
			}

			block, err := chainsync.FromWireBlock(msg, height, resolver)
			if err != nil {
				return fmt.Errorf("第 %d 行: %w", line, err)
			}
			if err := syncer.OnConnect(ctx, block); err != nil {
				return fmt.Errorf("第 %d 行: 连接区块 %s 失败: %w", line, block.Meta.Hash, err)
			}
			if prevOuts != nil {
				prevOuts.AddBlock(msg)
			}
			imported++
		}
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return fmt.Errorf("第 %d 行超过 %d 字节", line+1, maxBlockLine)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "导入完成: 新增 %d 个区块, 跳过 %d 个已索引区块\n", imported, skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importFlags.noSpends, "no-spends", false, "不解析输入所花费的脚本")
}

// openInput 打开输入文件，"-" 表示标准输入
func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("打开区块文件失败: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// decodeBlock 解码一行十六进制区块
func decodeBlock(text string) (*wire.MsgBlock, error) {
	raw, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("十六进制解码失败: %w", err)
	}
	var msg wire.MsgBlock
	if err := msg.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("反序列化区块失败: %w", err)
	}
	return &msg, nil
}
