package assistant

import (
	"fmt"
	"strings"

	"github.com/hitoshi/questlog/internal/model"
)

// recentSessionLimit はプロンプトに含める直近セッション数。
const recentSessionLimit = 5

// formatSessions は直近のセッションを新しい順に箇条書きにする。
func formatSessions(game model.Game) string {
	recent := game.RecentSessions(recentSessionLimit)
	if len(recent) == 0 {
		return "セッションの記録はありません。"
	}

	lines := make([]string, 0, len(recent))
	for _, s := range recent {
		line := fmt.Sprintf("- 日付: %s（%d分）\n  メモ: %s", s.Date.Format("2006/01/02"), s.DurationMinutes, s.Notes)
		if s.Sentiment != "" {
			line += "\n  手応え: " + string(s.Sentiment)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func resumePrompt(game model.Game) string {
	return fmt.Sprintf(`あなたはゲームプレイヤーの記憶を補助するアシスタントです。
ゲーム: %s
プラットフォーム: %s
現在の状態: %s

最近のセッション記録（プレイヤー自身のメモ）:
%s

タスク:
「前回までのあらすじ」を短く物語風にまとめてください。
プレイヤーがどこまで進めたか、メモから読み取れる次の一手は何かを説明してください。

厳守事項:
- メモに書かれていない出来事を作らないこと。
- 外部のネタバレを含めないこと。
- メモが曖昧な場合は全体的な要約と励ましにとどめること。
- 短い段落3つ以内。`,
		game.Title, game.Platform, game.Status, formatSessions(game))
}

func planPrompt(game model.Game, minutes int) string {
	return fmt.Sprintf(`あなたはゲーム攻略のストラテジストです。
ゲーム: %s
今日使える時間: %d分

最近のメモ:
%s

タスク:
この%d分のセッションで達成できる、明確で現実的な目標を1つ提案してください。
プレイヤーが行き詰まっているのか、順調に進んでいるのかを考慮してください。

出力形式:
1. メインの目標
2. ひとことアドバイス
全体で200文字程度。`,
		game.Title, minutes, formatSessions(game), minutes)
}

func stagnationPrompt(game model.Game) string {
	lastPlayed := "なし"
	if game.LastPlayed != nil {
		lastPlayed = game.LastPlayed.Format("2006/01/02")
	}
	return fmt.Sprintf(`このプレイヤーの状況を分析してください。
ゲーム: %s
状態: %s
最終プレイ日: %s
進捗: %d%%

最近のメモ:
%s

タスク:
メモから停滞や苛立ちが読み取れる場合は、休憩する、ネタバレなしの攻略情報を探す、別のクエストに切り替えるなどの作戦を優しく提案してください。
順調そうであれば短い励ましの言葉だけを返してください。
2文以内で簡潔に。`,
		game.Title, game.Status, lastPlayed, game.CompletionPercentage, formatSessions(game))
}
