package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/favorites"
)

var _ favorites.Observer = (*progressUI)(nil)

// progressUI 是交互终端下 update 的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：favorites 层只发事件，CLI 决定如何展示
// - keepalive：海报重试等待期间没有条目完成时，也会定期输出一行
type progressUI struct {
	w        io.Writer
	proxyURL string

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	ok      int
	skip    int
	fail    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, proxyURL string) *progressUI {
	return &progressUI{
		w:                  w,
		proxyURL:           proxyURL,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(opts favorites.Options, total int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	mode := "dry-run"
	modeHint := " (不写列表/不写缓存)"
	if opts.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] posterglow update (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  username: %s\n", opts.Username)
	fmt.Fprintf(p.w, "  output: %s\n", opts.Output)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  concurrency: %d\n", opts.Concurrency)
	fmt.Fprintf(p.w, "  attempts: %d (retry %s, fallback %s)\n", opts.Attempts, formatShortDuration(opts.RetryDelay), formatShortDuration(opts.FallbackDelay))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.proxyURL))
	fmt.Fprintf(p.w, "  cache: %s\n", orDash(opts.CacheDir))
	fmt.Fprintf(p.w, "收藏: %d 部\n\n", total)

	p.workers = opts.Concurrency
	p.total = total
	p.lastPrinted = time.Now()
	if total > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnItemDone(done, total int, item domain.UpdateItem, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total

	switch item.Status {
	case domain.StatusProcessed:
		p.ok++
		rgb := ""
		if item.RGB != nil {
			rgb = " rgb=" + formatRGB(*item.RGB)
		}
		fmt.Fprintf(p.w, "[%d/%d] %s OK%s (%s)\n", done, total, label(item), rgb, formatShortDuration(dur))
	case domain.StatusSkipped:
		p.skip++
		fmt.Fprintf(p.w, "[%d/%d] %s SKIP %s (%s)\n", done, total, label(item), item.Reason, formatShortDuration(dur))
	default:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s (%s)\n", done, total, label(item), truncate(item.Reason, 160), formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

// Stop 在 update 提前返回（例如写列表失败）时停止 ticker。
func (p *progressUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stop := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if time.Since(p.lastPrinted) > threshold {
					active := p.workers
					if remain := p.total - p.done; remain < active {
						active = remain
					}
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d skip=%d fail=%d active=%d elapsed=%s\n",
						p.done, p.total, p.ok, p.skip, p.fail, active, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func label(item domain.UpdateItem) string {
	if item.Title == "" {
		return item.ID
	}
	return fmt.Sprintf("%s (%s)", item.Title, item.ID)
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}
