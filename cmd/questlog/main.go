// Command questlog はゲームのプレイ記録、アイデア、個人開発アプリ、学習トピックを管理するAPIサーバー。
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/questlog/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("questlog exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
