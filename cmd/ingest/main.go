package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:           "ingest",
		Short:         "Import recipes from raw text and work with appliance actions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(importCMD(), formatCMD(), validateCMD())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// readInput 讀取檔案；"-" 或未指定時讀取標準輸入
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(b), nil
}

// readInline 參數本身即為內容（JSON 動作），否則同 readInput
func readInline(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "{") {
		return args[0], nil
	}
	return readInput(cmd, args)
}
