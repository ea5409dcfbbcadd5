// Package htmldoc 用 goquery / x/net/html 实现 page.Page：
// 解析一份 HTML 页面，支持按选择器改写内联样式、插入/替换/删除子树，并把插入以 Mutation 批次同步通知订阅者。
//
// 它既是 decorate 命令的页面宿主，也是装饰流程在测试中的“浏览器”。
package htmldoc

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/John-Robertt/posterglow/internal/page"
)

var _ page.Page = (*Document)(nil)

// ErrNoMatch 表示选择器在页面中没有命中任何元素。
var ErrNoMatch = errors.New("htmldoc: selector matched nothing")

// Document 是一份可变的 HTML 页面。
//
// 并发约束：所有读写都在 mu 内完成；通知订阅者时已释放 mu，
// 因此回调里可以再调用 QuerySelector / SetStyle。
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document

	obsMu     sync.Mutex
	observers map[int]func([]page.Mutation)
	nextObs   int
}

// Parse 从 r 读取并解析 HTML。
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc, observers: make(map[int]func([]page.Mutation))}, nil
}

// ParseString 是 Parse 的字符串便捷版本。
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func (d *Document) QuerySelector(selector string) (page.Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.doc.Find(selector).First()
	if s.Length() == 0 {
		return nil, false
	}
	return &element{d: d, s: s}, true
}

// Observe 订阅子树变更；返回的 cancel 可重复调用。
func (d *Document) Observe(fn func([]page.Mutation)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	d.obsMu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.obsMu.Lock()
			delete(d.observers, id)
			d.obsMu.Unlock()
		})
	}
}

// Insert 把 fragment 解析后追加为 parentSelector 首个命中元素的子节点。
func (d *Document) Insert(parentSelector, fragment string) error {
	d.mu.Lock()
	parent := d.doc.Find(parentSelector).First()
	if parent.Length() == 0 {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoMatch, parentSelector)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent.Get(0))
	if err != nil {
		d.mu.Unlock()
		return err
	}
	parent.AppendNodes(nodes...)
	m := mutationOf(nodes)
	d.mu.Unlock()

	d.notify([]page.Mutation{m})
	return nil
}

// Replace 用 fragment 替换 selector 首个命中元素，模拟站内导航时整块内容被重建。
func (d *Document) Replace(selector, fragment string) error {
	d.mu.Lock()
	target := d.doc.Find(selector).First()
	if target.Length() == 0 {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	ctxNode := target.Get(0).Parent
	if ctxNode == nil || ctxNode.Type != html.ElementNode {
		ctxNode = d.doc.Find("body").Get(0)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctxNode)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	target.ReplaceWithNodes(nodes...)
	m := mutationOf(nodes)
	d.mu.Unlock()

	d.notify([]page.Mutation{m})
	return nil
}

// Remove 删除 selector 命中的所有元素；产生一条没有新增节点的变更记录。
func (d *Document) Remove(selector string) error {
	d.mu.Lock()
	s := d.doc.Find(selector)
	if s.Length() == 0 {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	s.Remove()
	d.mu.Unlock()

	d.notify([]page.Mutation{{}})
	return nil
}

// Render 把当前页面序列化为 HTML。
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.doc.Nodes) == 0 {
		return errors.New("htmldoc: empty document")
	}
	return html.Render(w, d.doc.Nodes[0])
}

// HTML 返回 Render 的字符串结果。
func (d *Document) HTML() (string, error) {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (d *Document) notify(batch []page.Mutation) {
	d.obsMu.Lock()
	fns := make([]func([]page.Mutation), 0, len(d.observers))
	for id := 0; id < d.nextObs; id++ {
		if fn, ok := d.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	d.obsMu.Unlock()

	for _, fn := range fns {
		fn(batch)
	}
}

func mutationOf(nodes []*html.Node) page.Mutation {
	m := page.Mutation{AddedNodes: make([]page.AddedNode, 0, len(nodes))}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			m.AddedNodes = append(m.AddedNodes, page.AddedNode{Element: true, Tag: n.Data})
			continue
		}
		m.AddedNodes = append(m.AddedNodes, page.AddedNode{})
	}
	return m
}

type element struct {
	d *Document
	s *goquery.Selection
}

func (e *element) Style(prop string) string {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return parseStyle(e.s.AttrOr("style", "")).get(prop)
}

func (e *element) SetStyle(prop, value string) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	st := parseStyle(e.s.AttrOr("style", ""))
	st.set(prop, value)
	e.s.SetAttr("style", st.String())
}
