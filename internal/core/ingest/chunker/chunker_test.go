package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestChunkShortTextSingleChunk(t *testing.T) {
	text := "1 cup flour\nMix well."
	chunks, err := Chunk(text, 300, 50, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text || chunks[0].StartOffset != 0 {
		t.Errorf("chunk = %+v, want whole text at offset 0", chunks[0])
	}
}

func TestChunkEmptyText(t *testing.T) {
	chunks, err := Chunk("", 300, 50, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkFiveHundredChars(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50)
	chunks, err := Chunk(text, 300, 50, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].StartOffset != 0 || chunks[1].StartOffset != 250 {
		t.Errorf("offsets = %d, %d; want 0, 250", chunks[0].StartOffset, chunks[1].StartOffset)
	}
	if len(chunks[0].Text) != 300 || len(chunks[1].Text) != 250 {
		t.Errorf("lengths = %d, %d; want 300, 250", len(chunks[0].Text), len(chunks[1].Text))
	}
	if got := Reassemble(chunks); got != text {
		t.Errorf("reassembled text differs from input")
	}
}

func TestChunkFoldsShortTail(t *testing.T) {
	// 尾段 250 字元不超過門檻 260，改為貼齊結尾的完整視窗
	text := strings.Repeat("0123456789", 50)
	chunks, err := Chunk(text, 300, 50, 260)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].StartOffset != 200 || len(chunks[1].Text) != 300 {
		t.Errorf("tail chunk = offset %d len %d; want offset 200 len 300", chunks[1].StartOffset, len(chunks[1].Text))
	}
	if got := Reassemble(chunks); got != text {
		t.Errorf("reassembled text differs from input")
	}
}

func TestChunkShortTailKeepsUncoveredRunes(t *testing.T) {
	// 尾段 60 字元中只有最後 10 字元不在前一塊內，仍須補一塊貼齊結尾的視窗
	text := strings.Repeat("a", 550) + "0123456789"
	chunks, err := Chunk(text, 300, 50, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{0, 250, 260}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, off := range want {
		if chunks[i].StartOffset != off || len([]rune(chunks[i].Text)) != 300 {
			t.Errorf("chunk %d = offset %d len %d; want offset %d len 300", i, chunks[i].StartOffset, len(chunks[i].Text), off)
		}
	}
	if prev := chunks[1]; strings.HasSuffix(prev.Text, "9") {
		t.Errorf("second chunk unexpectedly reaches the end of the text")
	}
	if !strings.HasSuffix(chunks[2].Text, "0123456789") {
		t.Errorf("last chunk does not cover the end of the text")
	}
	if got := Reassemble(chunks); got != text {
		t.Errorf("reassembled text differs from input")
	}
}

func TestChunkInvariants(t *testing.T) {
	tests := []struct {
		name                 string
		length               int
		max, overlap, minEnd int
	}{
		{"exact fit", 300, 300, 50, 100},
		{"one over", 301, 300, 50, 100},
		{"long text", 10_000, 700, 120, 200},
		{"zero overlap", 2_345, 500, 0, 0},
		{"large min final", 3_001, 1000, 200, 999},
		{"tiny windows", 97, 10, 9, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			for i := 0; sb.Len() < tt.length; i++ {
				sb.WriteByte(byte('a' + i%26))
			}
			text := sb.String()[:tt.length]

			chunks, err := Chunk(text, tt.max, tt.overlap, tt.minEnd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, ch := range chunks {
				if n := len([]rune(ch.Text)); n > tt.max {
					t.Errorf("chunk %d length %d exceeds max %d", i, n, tt.max)
				}
				if i > 0 && ch.StartOffset <= chunks[i-1].StartOffset {
					t.Errorf("chunk %d offset %d not increasing", i, ch.StartOffset)
				}
				if i > 0 && ch.StartOffset > chunks[i-1].End() {
					t.Errorf("gap before chunk %d", i)
				}
			}
			if got := Reassemble(chunks); got != text {
				t.Errorf("reassembled text differs from input")
			}
		})
	}
}

func TestChunkMultibyteRunes(t *testing.T) {
	text := strings.Repeat("番茄炒蛋🍳", 40) // 200 runes
	chunks, err := Chunk(text, 64, 16, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, ch := range chunks {
		if !strings.HasPrefix(text[len(string([]rune(text)[:ch.StartOffset])):], ch.Text) {
			t.Errorf("chunk %d does not match source at offset %d", i, ch.StartOffset)
		}
	}
	if got := Reassemble(chunks); got != text {
		t.Errorf("reassembled text differs from input")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []Config{
		{MaxChunkSize: 0, OverlapSize: 0},
		{MaxChunkSize: 100, OverlapSize: 100},
		{MaxChunkSize: 100, OverlapSize: -1},
		{MaxChunkSize: 100, OverlapSize: 10, MinFinalChunkSize: -5},
	}
	for _, cfg := range tests {
		if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%+v) error = %v, want ErrInvalidConfig", cfg, err)
		}
	}
}
