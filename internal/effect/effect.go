// Package effect 把命中的特殊电影转换为海报的发光样式，并写到页面上。
package effect

import (
	"fmt"

	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/page"
)

const (
	// PosterSelector 定位影片页的海报图片。
	PosterSelector = ".film-poster img"
	// StyleProperty 是发光效果写入的内联样式属性。
	StyleProperty = "box-shadow"

	Alpha        = 0.75
	GlowRadiusPx = 25
)

// Color 把 rgb 三元组组合成固定透明度的 rgba 字符串，例如 "rgba(10, 20, 30, 0.75)"。
func Color(rgb domain.RGB) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", rgb[0], rgb[1], rgb[2], Alpha)
}

// BoxShadow 返回固定半径的发光样式值。
func BoxShadow(color string) string {
	return fmt.Sprintf("0 0 %dpx %s", GlowRadiusPx, color)
}

// Glow 是 movie 对应的完整样式值。
func Glow(movie domain.SpecialMovie) string {
	return BoxShadow(Color(movie.RGB))
}

// Apply 给 doc 中的海报加上 movie 的发光效果。
// 海报不存在时什么也不做并返回 false；重复调用结果相同。
func Apply(doc page.Document, movie domain.SpecialMovie) bool {
	poster, ok := doc.QuerySelector(PosterSelector)
	if !ok {
		return false
	}
	poster.SetStyle(StyleProperty, Glow(movie))
	return true
}
