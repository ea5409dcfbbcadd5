package httpx

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultRetryMax = 2
	defaultBackoff  = 500 * time.Millisecond
	maxRetryAfter   = 5 * time.Second
)

// Transport 把“UA 池 + 代理 + keep-alive 策略 + 有界重试”固化为统一策略。
//
// 调用方（列表拉取 / 用户主页抓取 / 海报下载）只关心请求本身，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	ua *uaPool

	// RetryMax 表示最大重试次数（不含首次尝试）。0 表示不重试。
	// 传输层错误总是可重试；HTTP 状态码只有 RetryStatus=true 时才看 429/5xx。
	RetryMax int

	// RetryStatus 为 true 时把 429 与 5xx 视为可重试（Letterboxd 限流时返回 429）。
	RetryStatus bool

	// Backoff 是第 n 次重试前等待 n*Backoff；响应带 Retry-After（秒）时以其为准，上限 5s。
	Backoff time.Duration

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对可重放的请求重试：GET/HEAD 且无 body。
	max := t.RetryMax
	if max < 0 || req.Body != nil || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
		max = 0
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; ; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.ua != nil {
			r.Header.Set("User-Agent", t.ua.random())
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err = t.Base.RoundTrip(r)
		if attempt >= max || req.Context().Err() != nil || !t.retryable(resp, err) {
			return resp, err
		}

		wait := t.Backoff * time.Duration(attempt+1)
		if resp != nil {
			if ra := retryAfter(resp.Header.Get("Retry-After")); ra > 0 {
				wait = ra
			}
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
		}
		if err := sleep(req.Context(), wait); err != nil {
			return nil, err
		}
	}
}

func (t *Transport) retryable(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if !t.RetryStatus || resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

func retryAfter(v string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	d := time.Duration(n) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewListClient 构造拉取特殊电影列表的 client：不重试，失败直接交给上层降级为空列表。
func NewListClient(proxyURL string) (*http.Client, error) {
	return newClient(strings.TrimSpace(proxyURL), 0, false)
}

// NewPageClient 构造抓取 Letterboxd 页面（用户主页、影片页）的 client，带有界重试。
func NewPageClient(proxyURL string) (*http.Client, error) {
	return newClient(strings.TrimSpace(proxyURL), defaultRetryMax, true)
}

// NewImageClient 构造海报下载 client。
//
// - imageProxy=false：图片直连（忽略 proxyURL）
// - imageProxy=true：图片走 proxyURL
func NewImageClient(proxyURL string, imageProxy bool) (*http.Client, error) {
	if !imageProxy {
		return newClient("", defaultRetryMax, true)
	}
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return nil, errors.New("image_proxy=true 但 proxy.url 为空")
	}
	return newClient(proxyURL, defaultRetryMax, true)
}

func newClient(proxyURL string, retryMax int, retryStatus bool) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		// 代理模式每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	tr := &Transport{
		Base:              base,
		ua:                globalUA,
		RetryMax:          retryMax,
		RetryStatus:       retryStatus,
		Backoff:           defaultBackoff,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   defaultTimeout,
	}, nil
}

// uaPool 在几个常见桌面浏览器 UA 中随机挑选。
type uaPool struct {
	uas []string
}

func (p *uaPool) random() string { return p.uas[rand.IntN(len(p.uas))] }

var globalUA = &uaPool{uas: []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
}}
