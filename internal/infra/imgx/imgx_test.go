package imgx

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/John-Robertt/posterglow/internal/domain"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png 失败：%v", err)
	}
	return buf.Bytes()
}

func TestDominantColor_MostFrequentPixel(t *testing.T) {
	// 左 1/4 红，右 3/4 蓝：主色应为蓝。
	const (
		w = 40
		h = 10
	)
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/4 {
				src.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				src.Set(x, y, color.RGBA{12, 34, 200, 255})
			}
		}
	}

	got, err := DominantColor(encodePNG(t, src))
	if err != nil {
		t.Fatalf("DominantColor 失败：%v", err)
	}
	if got != (domain.RGB{12, 34, 200}) {
		t.Fatalf("主色不符合预期：%v", got)
	}
}

func TestDominantColor_TieKeepsFirstReached(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{1, 2, 3, 255})
	src.Set(1, 0, color.RGBA{4, 5, 6, 255})

	got, err := DominantColor(encodePNG(t, src))
	if err != nil {
		t.Fatalf("DominantColor 失败：%v", err)
	}
	if got != (domain.RGB{1, 2, 3}) {
		t.Fatalf("并列时应取先出现的颜色：%v", got)
	}
}

func TestDominantColor_TiePrefersEarliestFirstOccurrence(t *testing.T) {
	// 像素顺序 A B B A：B 先达到计数 2，但 A 首次出现更早，应取 A。
	a := color.RGBA{10, 10, 10, 255}
	b := color.RGBA{200, 200, 200, 255}
	src := image.NewRGBA(image.Rect(0, 0, 4, 1))
	for x, c := range []color.RGBA{a, b, b, a} {
		src.Set(x, 0, c)
	}

	got, err := DominantColor(encodePNG(t, src))
	if err != nil {
		t.Fatalf("DominantColor 失败：%v", err)
	}
	if got != (domain.RGB{10, 10, 10}) {
		t.Fatalf("并列时应取首次出现最早的颜色：%v", got)
	}
}

func TestDominantColor_Invalid(t *testing.T) {
	if _, err := DominantColor(nil); err == nil {
		t.Fatalf("期望空输入返回错误")
	}
	if _, err := DominantColor([]byte("<html>not an image</html>")); err == nil {
		t.Fatalf("期望非图片返回错误")
	}
}
