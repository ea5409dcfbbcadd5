// Package letterboxd 抓取并解析 Letterboxd 用户主页的收藏区（Favorites），并拼出海报地址。
package letterboxd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/posterglow/internal/domain"
)

const (
	DefaultBaseURL       = "https://letterboxd.com"
	DefaultPosterBaseURL = "https://a.ltrbxd.com"
)

// ErrNoFavoritesSection 表示页面里没有 section#favourites（用户名错误或用户未设置收藏）。
var ErrNoFavoritesSection = errors.New("letterboxd: favourites section not found")

// HTTPStatusError 表示站点返回了非 2xx 的状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d url=%s", e.StatusCode, e.URL)
}

// Client 负责用户主页抓取。Fetch 不缓存、不限速（重试由 httpx.Transport 统一处理）。
type Client struct {
	// BaseURL 为空时使用 https://letterboxd.com；测试中指向 httptest server。
	BaseURL string
	// PosterBaseURL 为空时使用 https://a.ltrbxd.com。
	PosterBaseURL string
}

func (c Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (c Client) posterBaseURL() string {
	u := strings.TrimSpace(c.PosterBaseURL)
	if u == "" {
		return DefaultPosterBaseURL
	}
	return strings.TrimRight(u, "/")
}

// ProfileURL 返回 https://letterboxd.com/<username>/。
func (c Client) ProfileURL(username string) string {
	return c.baseURL() + "/" + url.PathEscape(strings.TrimSpace(username)) + "/"
}

// Favorites 抓取用户主页并解析收藏区。
func (c Client) Favorites(ctx context.Context, hc *http.Client, username string) ([]domain.Favorite, error) {
	if hc == nil {
		return nil, errors.New("http client 不能为空")
	}
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("username 不能为空")
	}
	b, err := Get(ctx, hc, c.ProfileURL(username))
	if err != nil {
		return nil, err
	}
	return ParseFavorites(b, c.posterBaseURL())
}

// ParseFavorites 从用户主页 HTML 中解析收藏影片（纯函数）。
//
// 结构：section#favourites .poster-container > div.film-poster[data-film-id][data-film-slug] > img[alt]
func ParseFavorites(html []byte, posterBase string) ([]domain.Favorite, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	section := doc.Find("section#favourites").First()
	if section.Length() == 0 {
		return nil, ErrNoFavoritesSection
	}

	var out []domain.Favorite
	section.Find(".poster-container").Each(func(_ int, s *goquery.Selection) {
		poster := s.Find("div.film-poster").First()
		if poster.Length() == 0 {
			return
		}
		id := strings.TrimSpace(poster.AttrOr("data-film-id", ""))
		slug := strings.TrimSpace(poster.AttrOr("data-film-slug", ""))
		if id == "" || slug == "" {
			return
		}
		// 影片页的 filmData.name 是 NFC；列表按标题完全相等匹配，这里统一成同一形式。
		title := norm.NFC.String(strings.TrimSpace(poster.Find("img").First().AttrOr("alt", "")))
		out = append(out, domain.Favorite{
			ID:        domain.FilmID(id),
			Title:     title,
			Slug:      slug,
			PosterURL: PosterURL(posterBase, domain.FilmID(id), slug),
		})
	})
	return out, nil
}

// PosterURL 拼出 2000x3000 裁切海报地址：
// <base>/resized/film-poster/5/1/5/6/8/51568-heat-0-2000-0-3000-crop.jpg
func PosterURL(base string, id domain.FilmID, slug string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultPosterBaseURL
	}
	s := string(id)
	digits := make([]string, 0, len(s))
	for _, r := range s {
		digits = append(digits, string(r))
	}
	return fmt.Sprintf("%s/resized/film-poster/%s/%s-%s-0-2000-0-3000-crop.jpg", base, strings.Join(digits, "/"), s, slug)
}

var slugNumberRE = regexp.MustCompile(`-\d+`)

// StripSlugNumbers 去掉 slug 中所有 "-<数字>" 片段（例如年份后缀），用于海报地址的回退尝试。
func StripSlugNumbers(slug string) string {
	return slugNumberRE.ReplaceAllString(slug, "")
}

// Get 发起 GET 并返回 body；非 2xx 返回 *HTTPStatusError。
func Get(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
