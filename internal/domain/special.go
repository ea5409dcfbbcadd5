package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FilmID 是 Letterboxd 的影片 id。
//
// 远程列表里的 id 可能是字符串（"51568"）也可能是数字（51568），页面上的 filmData.id 通常是数字。
// 统一按文本形式比较，空值表示“没有 id”，永远不参与匹配。
type FilmID string

func (id FilmID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

func (id FilmID) String() string { return string(id) }

// UnmarshalJSON 接受 string / number / null；其他类型（布尔、对象、数组）按空 id 处理，
// 该条目仍可按标题匹配，不影响整份列表。
func (id *FilmID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FilmID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*id = ""
		return nil
	}
	*id = FilmID(canonicalNumber(n))
	return nil
}

// MarshalJSON 始终输出字符串形态（与列表生成脚本的历史输出一致）。
func (id FilmID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// canonicalNumber 把 51568 / 51568.0 统一为 "51568"；非整数保持原文。
func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return n.String()
}

// RGB 是 0–255 的颜色三元组，JSON 形态为 [r, g, b]。
type RGB [3]int

// SpecialMovie 是远程列表中的一条记录：影片标识 + 装饰颜色。
//
// 列表只读：一次页面浏览内拉取一次，之后只做查找。
type SpecialMovie struct {
	ID    FilmID `json:"id,omitempty"`
	Title string `json:"title"`
	RGB   RGB    `json:"rgb"`
}
