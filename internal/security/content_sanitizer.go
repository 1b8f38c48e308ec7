// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが入力した自由記述からマークアップを取り除き、
// プレーンテキストとして保存できる形にする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は自由記述テキストのサニタイズ機能のインターフェース。
type Sanitizer interface {
	// Sanitize はHTMLタグを除去し、エンティティを復元したプレーンテキストを返す。
	// 前後の空白は除去する。同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string

	// SanitizeList は各要素をサニタイズし、空要素と重複を除く。
	SanitizeList(raw []string) []string
}

// TextSanitizer はbluemondayのStrictPolicyを使うSanitizerの実装。
// ポリシーはスレッドセーフに共有できる。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses はエスケープが重なった入力を剥がしきるまでの上限回数。
const maxSanitizePasses = 8

// Sanitize はタグを全て除去したプレーンテキストを返す。
// script/styleの中身は捨てられる。エンティティの復元でタグが現れた場合は再度除去し、
// 出力が変わらなくなるまで繰り返すため、Sanitize(Sanitize(x)) == Sanitize(x) が成り立つ。
func (s *TextSanitizer) Sanitize(raw string) string {
	out := strings.TrimSpace(raw)
	for range maxSanitizePasses {
		if out == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(out)))
		if next == out {
			break
		}
		out = next
	}
	return out
}

// SanitizeList は各要素をサニタイズし、空要素と重複を除いた新しいスライスを返す。
// 順序は最初に現れた位置を保つ。
func (s *TextSanitizer) SanitizeList(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		v := s.Sanitize(r)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// compile-time interface check
var _ Sanitizer = (*TextSanitizer)(nil)
