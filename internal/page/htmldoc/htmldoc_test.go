package htmldoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/John-Robertt/posterglow/internal/page"
)

const filmPage = `<!DOCTYPE html>
<html><head>
<script>
	var filmData = { id: 51568, name: "Heat", gwiId: 37043, releaseYear: "1995", path: "\/film\/heat-1995\/" };
</script>
</head><body>
<div id="content"><section class="poster-list"><div class="film-poster"><img src="/p.jpg" alt="Heat" style="width: 230px"></div></section></div>
</body></html>`

func TestQuerySelector_SetStyleKeepsOtherDeclarations(t *testing.T) {
	d, err := ParseString(filmPage)
	if err != nil {
		t.Fatalf("ParseString 失败：%v", err)
	}
	el, ok := d.QuerySelector(".film-poster img")
	if !ok {
		t.Fatalf("期望找到海报元素")
	}
	el.SetStyle("box-shadow", "0 0 25px rgba(1, 2, 3, 0.75)")
	el.SetStyle("box-shadow", "0 0 25px rgba(1, 2, 3, 0.75)")

	if got := el.Style("box-shadow"); got != "0 0 25px rgba(1, 2, 3, 0.75)" {
		t.Fatalf("box-shadow 不符合预期：%q", got)
	}
	if got := el.Style("width"); got != "230px" {
		t.Fatalf("原有声明丢失：width=%q", got)
	}

	out, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML 失败：%v", err)
	}
	if !strings.Contains(out, `style="width: 230px; box-shadow: 0 0 25px rgba(1, 2, 3, 0.75)"`) {
		t.Fatalf("渲染结果不符合预期：%s", out)
	}
}

func TestQuerySelector_Missing(t *testing.T) {
	d, err := ParseString(`<html><body><p>no poster</p></body></html>`)
	if err != nil {
		t.Fatalf("ParseString 失败：%v", err)
	}
	if _, ok := d.QuerySelector(".film-poster img"); ok {
		t.Fatalf("不应找到海报元素")
	}
}

func TestInsert_NotifiesObserversWithElementNodes(t *testing.T) {
	d, err := ParseString(`<html><body><div id="content"></div></body></html>`)
	if err != nil {
		t.Fatalf("ParseString 失败：%v", err)
	}

	var batches [][]page.Mutation
	cancel := d.Observe(func(ms []page.Mutation) {
		batches = append(batches, ms)
		// 回调里查询页面不能死锁。
		_, _ = d.QuerySelector(".film-poster img")
	})

	if err := d.Insert("#content", `text<div class="film-poster"><img src="/p.jpg"></div><!-- c -->`); err != nil {
		t.Fatalf("Insert 失败：%v", err)
	}
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("期望 1 个批次 1 条记录，实际 %v", batches)
	}
	added := batches[0][0].AddedNodes
	if len(added) != 3 {
		t.Fatalf("期望 3 个新增节点，实际 %+v", added)
	}
	if added[0].Element || !added[1].Element || added[1].Tag != "div" || added[2].Element {
		t.Fatalf("新增节点类型不符合预期：%+v", added)
	}
	if _, ok := d.QuerySelector(".film-poster img"); !ok {
		t.Fatalf("插入后应能找到海报")
	}

	cancel()
	cancel()
	if err := d.Insert("#content", `<p>x</p>`); err != nil {
		t.Fatalf("Insert 失败：%v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("取消订阅后不应再收到通知")
	}
}

func TestReplaceAndRemove(t *testing.T) {
	d, err := ParseString(filmPage)
	if err != nil {
		t.Fatalf("ParseString 失败：%v", err)
	}
	var n int
	d.Observe(func([]page.Mutation) { n++ })

	if err := d.Replace(".poster-list", `<section class="poster-list"><div class="film-poster"><img src="/q.jpg"></div></section>`); err != nil {
		t.Fatalf("Replace 失败：%v", err)
	}
	el, ok := d.QuerySelector(".film-poster img")
	if !ok {
		t.Fatalf("替换后应能找到海报")
	}
	if el.Style("width") != "" {
		t.Fatalf("替换后应是新元素")
	}

	if err := d.Remove(".film-poster"); err != nil {
		t.Fatalf("Remove 失败：%v", err)
	}
	if _, ok := d.QuerySelector(".film-poster img"); ok {
		t.Fatalf("删除后不应找到海报")
	}
	if n != 2 {
		t.Fatalf("期望 2 次通知，实际 %d", n)
	}

	if err := d.Remove(".nope"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("期望 ErrNoMatch，实际：%v", err)
	}
}

func TestFilmContext(t *testing.T) {
	d, err := ParseString(filmPage)
	if err != nil {
		t.Fatalf("ParseString 失败：%v", err)
	}
	fc, ok := d.FilmContext()
	if !ok {
		t.Fatalf("期望读到 filmData")
	}
	if fc.ID != "51568" || fc.Name != "Heat" {
		t.Fatalf("filmData 解析错误：%+v", fc)
	}
}

func TestFilmContext_EscapedAndQuotedID(t *testing.T) {
	d, err := ParseString(`<html><head><script>var filmData = {id: "42", name: "Amélie \"Le\" Film"};</script></head><body></body></html>`)
	if err != nil {
		t.Fatalf("ParseString 失败：%v", err)
	}
	fc, ok := d.FilmContext()
	if !ok {
		t.Fatalf("期望读到 filmData")
	}
	if fc.ID != "42" || fc.Name != `Amélie "Le" Film` {
		t.Fatalf("filmData 解析错误：%+v", fc)
	}
}

func TestFilmContext_BraceInsideString(t *testing.T) {
	d, err := ParseString(`<html><head><script>var filmData = { id: 7, name: "{Proof}" };</script></head><body></body></html>`)
	if err != nil {
		t.Fatalf("ParseString 失败：%v", err)
	}
	fc, ok := d.FilmContext()
	if !ok {
		t.Fatalf("期望读到 filmData")
	}
	if fc.ID != "7" || fc.Name != "{Proof}" {
		t.Fatalf("filmData 解析错误：%+v", fc)
	}
}

func TestFilmDataBody(t *testing.T) {
	cases := []struct {
		src    string
		want   string
		wantOK bool
	}{
		{`var filmData = { id: 1 };`, ` id: 1 `, true},
		{`filmData={name:'a}b', id: 2}`, `name:'a}b', id: 2`, true},
		{`filmData = {name: "x\"}", id: 3}`, `name: "x\"}", id: 3`, true},
		{`filmData = {poster: {w: 1}, id: 4}`, `poster: {w: 1}, id: 4`, true},
		{`filmData = { id: 5`, ``, false},
		{`var other = {id: 1};`, ``, false},
	}
	for _, c := range cases {
		got, ok := filmDataBody(c.src)
		if ok != c.wantOK || got != c.want {
			t.Fatalf("filmDataBody(%q) = %q, %v；期望 %q, %v", c.src, got, ok, c.want, c.wantOK)
		}
	}
}

func TestFilmContext_Absent(t *testing.T) {
	d, err := ParseString(`<html><head><script>var other = {id: 1};</script></head><body></body></html>`)
	if err != nil {
		t.Fatalf("ParseString 失败：%v", err)
	}
	if _, ok := d.FilmContext(); ok {
		t.Fatalf("没有 filmData 时 ok 应为 false")
	}
}
