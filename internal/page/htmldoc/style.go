package htmldoc

import "strings"

type decl struct {
	prop  string
	value string
}

// style 是内联 style 属性的有序声明列表。
type style []decl

// parseStyle 按 ';' 切分声明；括号与引号内的 ';'（例如 url(data:...;base64,...)）不切分。
func parseStyle(s string) style {
	var (
		out   style
		depth int
		quote rune
		start int
	)
	flush := func(end int) {
		part := strings.TrimSpace(s[start:end])
		start = end + 1
		if part == "" {
			return
		}
		i := strings.IndexByte(part, ':')
		if i <= 0 {
			return
		}
		prop := strings.ToLower(strings.TrimSpace(part[:i]))
		val := strings.TrimSpace(part[i+1:])
		if prop == "" {
			return
		}
		out.set(prop, val)
	}
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			flush(i)
		}
	}
	flush(len(s))
	return out
}

func (st style) get(prop string) string {
	prop = strings.ToLower(strings.TrimSpace(prop))
	for _, d := range st {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// set 覆盖已有声明（保持原位置），否则追加。value 为空表示删除。
func (st *style) set(prop, value string) {
	prop = strings.ToLower(strings.TrimSpace(prop))
	value = strings.TrimSpace(value)
	for i, d := range *st {
		if d.prop != prop {
			continue
		}
		if value == "" {
			*st = append((*st)[:i], (*st)[i+1:]...)
			return
		}
		(*st)[i].value = value
		return
	}
	if value != "" {
		*st = append(*st, decl{prop: prop, value: value})
	}
}

func (st style) String() string {
	parts := make([]string, 0, len(st))
	for _, d := range st {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}
