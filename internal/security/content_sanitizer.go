// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はレビュー・コメント本文の投稿テキストをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 本文はプレーンテキストとして扱い、HTMLタグを全て除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿テキストのサニタイズ機能のインターフェースを定義する。
// レビュー・コメントの保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は投稿テキストをサニタイズしてプレーンテキストを返す。
	// HTMLタグは全て除去され、テキストノードのみが残る。
	// 前後の空白は除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// レビュー・コメント本文は表示時にエスケープされる前提のプレーンテキストであり、
// StrictPolicy（許可タグなし）で全てのマークアップを除去する。
// script, iframe, styleタグおよびon*イベント属性も当然除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は投稿テキストをサニタイズしてプレーンテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
