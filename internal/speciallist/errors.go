package speciallist

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed 表示 200 响应的 body 不是合法的特殊电影列表 JSON。
var ErrMalformed = errors.New("special list: malformed json")

// StatusError 表示列表地址返回了非 200 的状态码。
type StatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// FetchError 是一次列表拉取失败（传输错误 / 非 200 / JSON 解析失败）。
// 上层可以用 errors.As 取出 *StatusError，或用 errors.Is 判断 ErrMalformed。
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("拉取特殊电影列表失败 url=%s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
