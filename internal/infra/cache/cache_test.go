package cache

import (
	"errors"
	"os"
	"testing"
)

const posterURL = "https://a.ltrbxd.com/resized/film-poster/5/1/5/6/8/51568-heat-0-2000-0-3000-crop.jpg"

func TestStore_ReadWritePoster(t *testing.T) {
	s := New(t.TempDir(), false)
	if err := s.WritePoster("51568", posterURL, []byte("jpeg")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, ok, err := s.ReadPoster("51568", posterURL)
	if err != nil || !ok {
		t.Fatalf("期望命中缓存：ok=%v err=%v", ok, err)
	}
	if string(b) != "jpeg" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	// 回退地址是另一份缓存。
	_, ok, err = s.ReadPoster("51568", "https://a.ltrbxd.com/resized/film-poster/5/1/5/6/8/51568-heat-0-2000-0-3000-crop-v2.jpg")
	if err != nil || ok {
		t.Fatalf("不同地址不应命中：ok=%v err=%v", ok, err)
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	s := New(t.TempDir(), true)
	err := s.WritePoster("51568", posterURL, []byte("jpeg"))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}
	p, err := s.PosterPath("51568", posterURL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("期望文件不存在，但 Stat err=%v", err)
	}
}

func TestStore_Disabled(t *testing.T) {
	s := New("", false)
	if err := s.WritePoster("1", posterURL, []byte("x")); err != nil {
		t.Fatalf("关闭的缓存写入应静默跳过：%v", err)
	}
	if _, ok, err := s.ReadPoster("1", posterURL); ok || err != nil {
		t.Fatalf("关闭的缓存应 miss：ok=%v err=%v", ok, err)
	}
}

func TestStore_RejectsTraversal(t *testing.T) {
	s := New(t.TempDir(), false)
	if _, err := s.PosterPath("..", posterURL); err == nil {
		t.Fatalf("期望拒绝 ..")
	}
	if _, err := s.PosterPath("../etc", posterURL); err == nil {
		t.Fatalf("期望拒绝路径分隔符")
	}
}
