// Package page 描述装饰逻辑所依赖的最小“页面”能力：按选择器查找元素、读写内联样式、订阅子树插入。
//
// 核心的匹配/上色流程只依赖这里的接口，不依赖任何具体的 DOM 实现；
// htmldoc 子包提供基于 goquery 的 HTML 实现。
package page

import (
	"net/url"
	"strings"
)

// Element 是可以读写内联样式的页面元素。
type Element interface {
	Style(prop string) string
	SetStyle(prop, value string)
}

// Document 按 CSS 选择器查找第一个匹配元素。
type Document interface {
	QuerySelector(selector string) (Element, bool)
}

// AddedNode 描述一次变更中新插入的节点。
type AddedNode struct {
	Element bool   // 只有元素节点会触发重新检查（文本/注释节点忽略）
	Tag     string // 元素标签名；非元素节点为空
}

// Mutation 是一条子树变更记录。
type Mutation struct {
	AddedNodes []AddedNode
}

// Observable 在页面子树发生插入时按批次回调。
//
// 约束：回调在变更投递方的调用栈里同步执行，不能做阻塞操作。
type Observable interface {
	Observe(fn func([]Mutation)) (cancel func())
}

// Page 是装饰流程需要的全部页面能力。
type Page interface {
	Document
	Observable
}

// MatchesFilmURL 判断 raw 是否是 Letterboxd 影片页（https://letterboxd.com/film/*）。
func MatchesFilmURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "https" || strings.ToLower(u.Host) != "letterboxd.com" {
		return false
	}
	return strings.HasPrefix(u.Path, "/film/")
}
