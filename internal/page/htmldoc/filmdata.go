package htmldoc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/posterglow/internal/domain"
)

// Letterboxd 影片页在内联脚本里声明：
//
//	var filmData = { id: 51568, name: "Heat", gwiId: 37043, ... };
var (
	filmDataRE = regexp.MustCompile(`filmData\s*=\s*\{`)
	filmIDRE   = regexp.MustCompile(`(?:^|[,{\s])id\s*:\s*("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|-?[0-9]+)`)
	filmNameRE = regexp.MustCompile(`(?:^|[,{\s])name\s*:\s*("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*')`)
)

// FilmContext 从页面脚本读取宿主的 filmData。
// 页面里没有 filmData（或 id/name 都读不到）时 ok=false。
func (d *Document) FilmContext() (domain.FilmContext, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		fc domain.FilmContext
		ok bool
	)
	d.doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body, found := filmDataBody(s.Text())
		if !found {
			return true
		}
		if im := filmIDRE.FindStringSubmatch(body); im != nil {
			fc.ID = domain.FilmID(strings.TrimSpace(unquoteJS(im[1])))
		}
		if nm := filmNameRE.FindStringSubmatch(body); nm != nil {
			fc.Name = unquoteJS(nm[1])
		}
		ok = !fc.ID.IsZero() || fc.Name != ""
		return !ok
	})
	return fc, ok
}

// filmDataBody 返回 filmData 对象字面量花括号之间的内容。
// 字符串里的花括号不计入配对；字面量没有闭合时 ok=false。
func filmDataBody(src string) (string, bool) {
	loc := filmDataRE.FindStringIndex(src)
	if loc == nil {
		return "", false
	}
	start := loc[1]
	depth := 1
	var quote byte
	for i := start; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[start:i], true
			}
		}
	}
	return "", false
}

// unquoteJS 解析 JS 字符串字面量；数字原样返回。
func unquoteJS(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	switch lit[0] {
	case '"':
		// JS 允许 "\/"，Go 的 Unquote 不允许。
		fixed := strings.ReplaceAll(lit, `\/`, `/`)
		if s, err := strconv.Unquote(fixed); err == nil {
			return s
		}
		return lit[1 : len(lit)-1]
	case '\'':
		inner := lit[1 : len(lit)-1]
		return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(inner)
	default:
		return lit
	}
}
