// Package chunker 將任意長度的原始文字切分為互相重疊的視窗，
// 讓每一塊都能放進擷取服務的上下文限制內。
//
// 所有長度與位移都以 Unicode 字元（rune）計算，不會切斷 UTF-8 字元。
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig 切塊參數不合法
var ErrInvalidConfig = errors.New("invalid chunking config")

// TextChunk 一段切塊後的文字
type TextChunk struct {
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"` // 在原文中的起始字元位置
}

// End 回傳切塊在原文中的結束位置（不含）
func (c TextChunk) End() int {
	return c.StartOffset + len([]rune(c.Text))
}

// Config 切塊設定
type Config struct {
	MaxChunkSize      int
	OverlapSize       int
	MinFinalChunkSize int
}

// Chunker 文字切塊器
type Chunker struct {
	config Config
}

// New 建立切塊器，參數不合法時回傳 ErrInvalidConfig
func New(cfg Config) (*Chunker, error) {
	if cfg.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: max chunk size must be positive, got %d", ErrInvalidConfig, cfg.MaxChunkSize)
	}
	if cfg.OverlapSize < 0 || cfg.OverlapSize >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, cfg.OverlapSize, cfg.MaxChunkSize)
	}
	if cfg.MinFinalChunkSize < 0 {
		return nil, fmt.Errorf("%w: min final chunk size must not be negative", ErrInvalidConfig)
	}
	return &Chunker{config: cfg}, nil
}

// Chunk 依設定切分文字
func (c *Chunker) Chunk(text string) []TextChunk {
	return split([]rune(text), c.config)
}

// Chunk 以指定參數切分文字；參數不合法時回傳錯誤
func Chunk(text string, maxChunkSize, overlapSize, minFinalChunkSize int) ([]TextChunk, error) {
	c, err := New(Config{
		MaxChunkSize:      maxChunkSize,
		OverlapSize:       overlapSize,
		MinFinalChunkSize: minFinalChunkSize,
	})
	if err != nil {
		return nil, err
	}
	return c.Chunk(text), nil
}

func split(runes []rune, cfg Config) []TextChunk {
	total := len(runes)
	if total == 0 {
		return []TextChunk{}
	}

	// 整段放得下就直接回傳
	if total <= cfg.MaxChunkSize {
		return []TextChunk{{Text: string(runes), StartOffset: 0}}
	}

	step := cfg.MaxChunkSize - cfg.OverlapSize
	chunks := make([]TextChunk, 0, total/step+1)

	pos := 0
	for total-pos > cfg.MaxChunkSize {
		chunks = append(chunks, TextChunk{
			Text:        string(runes[pos : pos+cfg.MaxChunkSize]),
			StartOffset: pos,
		})
		pos += step
	}

	// 剩餘尾段：夠長就獨立成塊，太短則改用貼齊結尾的完整視窗。
	// 尾段必定長於重疊區，前一塊無法完整涵蓋，不能直接捨棄
	tail := total - pos
	if tail > cfg.MinFinalChunkSize {
		chunks = append(chunks, TextChunk{
			Text:        string(runes[pos:]),
			StartOffset: pos,
		})
	} else {
		start := total - cfg.MaxChunkSize
		chunks = append(chunks, TextChunk{
			Text:        string(runes[start:]),
			StartOffset: start,
		})
	}

	return chunks
}

// Reassemble 依起始位移去除重疊區，還原原始文字
func Reassemble(chunks []TextChunk) string {
	var out []rune
	covered := 0
	for _, ch := range chunks {
		r := []rune(ch.Text)
		skip := covered - ch.StartOffset
		if skip < 0 {
			skip = 0
		}
		if skip >= len(r) {
			continue
		}
		out = append(out, r[skip:]...)
		covered = ch.StartOffset + len(r)
	}
	return string(out)
}
