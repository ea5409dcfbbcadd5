package imgx

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 海报默认是 JPEG
	_ "image/png"

	_ "golang.org/x/image/webp" // Letterboxd CDN 可能按 Accept 返回 WebP

	"github.com/John-Robertt/posterglow/internal/domain"
)

// DominantColor 返回图片中出现次数最多的 RGB 像素值（统计前先去掉 alpha）。
//
// 约束：
// - 输入允许 JPEG/PNG/GIF/WebP
// - 并列时取扫描顺序（从上到下、从左到右）中首次出现最早的颜色，保证结果稳定
func DominantColor(data []byte) (domain.RGB, error) {
	if len(data) == 0 {
		return domain.RGB{}, errors.New("图片为空")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.RGB{}, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return domain.RGB{}, errors.New("图片尺寸无效")
	}

	type tally struct {
		count int
		first int // 首次出现的像素序号
	}
	counts := make(map[[3]uint8]*tally, 4096)
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			k := [3]uint8{c.R, c.G, c.B}
			if t, ok := counts[k]; ok {
				t.count++
			} else {
				counts[k] = &tally{count: 1, first: idx}
			}
			idx++
		}
	}

	var (
		best [3]uint8
		top  *tally
	)
	for k, t := range counts {
		if top == nil || t.count > top.count ||
			(t.count == top.count && t.first < top.first) {
			best, top = k, t
		}
	}
	return domain.RGB{int(best[0]), int(best[1]), int(best[2])}, nil
}
