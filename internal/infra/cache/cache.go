package cache

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/infra/fsx"
)

// Store 提供 <dir>/posters/ 下的海报文件缓存，避免重复运行 update 时重新下载。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
// - Dir 为空：缓存关闭，读永远 miss，写静默跳过
type Store struct {
	Dir      string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(dir string, readOnly bool) Store {
	dir = strings.TrimSpace(dir)
	if dir != "" {
		dir = filepath.Clean(dir)
	}
	return Store{Dir: dir, ReadOnly: readOnly}
}

func (s Store) Enabled() bool { return s.Dir != "" }

// PosterPath 返回某部影片某个海报地址的缓存路径：<dir>/posters/<id>/<url 文件名>。
// 同一影片的主地址与回退地址文件名不同，互不覆盖。
func (s Store) PosterPath(id domain.FilmID, posterURL string) (string, error) {
	if !s.Enabled() {
		return "", errors.New("cache 未启用")
	}
	dirName, err := cleanSegment(string(id))
	if err != nil {
		return "", err
	}
	name, err := posterFileName(posterURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, "posters", dirName, name), nil
}

func (s Store) ReadPoster(id domain.FilmID, posterURL string) ([]byte, bool, error) {
	if !s.Enabled() {
		return nil, false, nil
	}
	p, err := s.PosterPath(id, posterURL)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) WritePoster(id domain.FilmID, posterURL string, data []byte) error {
	if !s.Enabled() {
		return nil
	}
	if s.ReadOnly {
		return ErrReadOnly
	}
	p, err := s.PosterPath(id, posterURL)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(p), filepath.Base(p), data)
}

var segmentRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// cleanSegment 防止路径穿越：只允许常见文件名字符，且不能是 "." / ".."。
func cleanSegment(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." || !segmentRE.MatchString(s) {
		return "", fmt.Errorf("非法缓存路径片段：%q", s)
	}
	return s, nil
}

func posterFileName(posterURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(posterURL))
	if err != nil {
		return "", err
	}
	return cleanSegment(path.Base(u.Path))
}
