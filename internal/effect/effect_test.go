package effect

import (
	"testing"

	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/page"
)

type fakeElement struct {
	styles map[string]string
	sets   int
}

func (e *fakeElement) Style(prop string) string { return e.styles[prop] }

func (e *fakeElement) SetStyle(prop, value string) {
	e.sets++
	e.styles[prop] = value
}

type fakeDoc struct {
	poster *fakeElement
	asked  []string
}

func (d *fakeDoc) QuerySelector(sel string) (page.Element, bool) {
	d.asked = append(d.asked, sel)
	if d.poster == nil {
		return nil, false
	}
	return d.poster, true
}

func TestColorAndBoxShadow(t *testing.T) {
	if got := Color(domain.RGB{10, 20, 30}); got != "rgba(10, 20, 30, 0.75)" {
		t.Fatalf("Color=%q", got)
	}
	if got := Glow(domain.SpecialMovie{RGB: domain.RGB{1, 2, 3}}); got != "0 0 25px rgba(1, 2, 3, 0.75)" {
		t.Fatalf("Glow=%q", got)
	}
}

func TestApply_Idempotent(t *testing.T) {
	el := &fakeElement{styles: map[string]string{}}
	doc := &fakeDoc{poster: el}
	m := domain.SpecialMovie{Title: "X", RGB: domain.RGB{10, 20, 30}}

	if !Apply(doc, m) {
		t.Fatalf("期望应用成功")
	}
	first := el.Style(StyleProperty)
	if !Apply(doc, m) {
		t.Fatalf("期望应用成功")
	}
	if el.Style(StyleProperty) != first {
		t.Fatalf("重复应用结果不同：%q vs %q", first, el.Style(StyleProperty))
	}
	if first != "0 0 25px rgba(10, 20, 30, 0.75)" {
		t.Fatalf("样式值不符合预期：%q", first)
	}
	if doc.asked[0] != ".film-poster img" {
		t.Fatalf("选择器不符合预期：%q", doc.asked[0])
	}
}

func TestApply_NoPoster(t *testing.T) {
	doc := &fakeDoc{}
	if Apply(doc, domain.SpecialMovie{RGB: domain.RGB{1, 2, 3}}) {
		t.Fatalf("没有海报时应返回 false")
	}
}
