// Package speciallist 拉取远程托管的特殊电影列表（JSON 数组）。
package speciallist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/logging"
)

// DefaultURL 是列表的默认托管地址（由 update 命令生成、推送到仓库）。
const DefaultURL = "https://raw.githubusercontent.com/fellowjamess/movie/main/letterboxd_favorites.json"

// maxBodyBytes 限制列表大小；列表只有几十条，超过即视为异常响应。
const maxBodyBytes = 4 << 20

// Fetcher 对固定 URL 做一次 GET。
//
// 约束：
// - 不重试、不缓存（每次页面浏览重新拉取）
// - 只有 HTTP 200 视为成功
type Fetcher struct {
	URL    string
	Client *http.Client
	Logger *slog.Logger
}

func (f Fetcher) url() string {
	u := strings.TrimSpace(f.URL)
	if u == "" {
		return DefaultURL
	}
	return u
}

// Fetch 拉取并解析列表。任何失败都返回 *FetchError。
func (f Fetcher) Fetch(ctx context.Context) ([]domain.SpecialMovie, error) {
	u := f.url()
	if f.Client == nil {
		return nil, &FetchError{URL: u, Err: errors.New("http client 不能为空")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: u, Err: &StatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	list, err := Decode(b)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	return list, nil
}

// Load 是降级版本的 Fetch：失败时记录日志并返回空列表，页面表现为“没有任何效果”。
// ok 区分“拉取成功但列表为空”与“拉取失败”。
func (f Fetcher) Load(ctx context.Context) ([]domain.SpecialMovie, bool) {
	list, err := f.Fetch(ctx)
	if err == nil {
		return list, true
	}

	logger := logging.NewComponentLogger(f.Logger, "speciallist")
	hint := "检查网络或 list_url"
	var se *StatusError
	switch {
	case errors.As(err, &se):
		hint = fmt.Sprintf("列表地址返回 HTTP %d", se.StatusCode)
	case errors.Is(err, ErrMalformed):
		hint = "列表内容不是合法 JSON 数组"
	}
	logger.Warn("特殊电影列表拉取失败，本次不应用任何效果",
		logging.Event("special_list_fetch_failed"),
		slog.String(logging.FieldURL, f.url()),
		slog.String(logging.FieldErrorHint, hint),
		logging.Error(err),
	)
	return []domain.SpecialMovie{}, false
}

// Decode 把 JSON 数组解析为列表；解析失败返回包装了 ErrMalformed 的错误。
func Decode(b []byte) ([]domain.SpecialMovie, error) {
	var list []domain.SpecialMovie
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if list == nil {
		// "null" 也按空列表处理。
		list = []domain.SpecialMovie{}
	}
	return list, nil
}
