// Package favorites 维护特殊电影列表文件：抓取用户收藏、计算海报主色、按 id 去重合并后写回。
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/infra/cache"
	"github.com/John-Robertt/posterglow/internal/infra/fsx"
	"github.com/John-Robertt/posterglow/internal/infra/imgx"
	"github.com/John-Robertt/posterglow/internal/letterboxd"
	"github.com/John-Robertt/posterglow/internal/logging"
	"github.com/John-Robertt/posterglow/internal/speciallist"
)

// ErrNoFavorites 表示用户主页上没有任何收藏影片（用户名错误或收藏为空）。
var ErrNoFavorites = errors.New("no favorite movies found")

// ErrLocked 表示另一个 update 进程正持有列表文件锁。
var ErrLocked = errors.New("列表文件正在被另一个 update 进程使用")

// 测试通过替换 sleepFunc 跳过重试等待。
var sleepFunc = sleepCtx

// Options 是一次 update 的参数（由 config.EffectiveConfig 映射而来）。
type Options struct {
	Username string
	Output   string // 列表文件路径（绝对路径）
	Apply    bool   // false 为 dry-run：不写列表、不写缓存

	Concurrency   int
	Attempts      int // 每个海报地址的尝试次数
	RetryDelay    time.Duration
	FallbackDelay time.Duration

	CacheDir string
}

// Deps 是 update 依赖的外部资源。
type Deps struct {
	Site        letterboxd.Client
	PageClient  *http.Client
	ImageClient *http.Client
	Logger      *slog.Logger
	Observer    Observer
}

// Update 执行一次列表更新并返回报告。
//
// 只有“无法开始”的错误（读不到旧列表、抓不到收藏、拿不到锁、写文件失败）作为 error 返回；
// 单部影片的失败记录在报告里，不影响其他影片。
func Update(ctx context.Context, opts Options, deps Deps) (domain.UpdateReport, error) {
	logger := logging.NewComponentLogger(deps.Logger, "favorites")
	rr := domain.UpdateReport{
		Username:  opts.Username,
		Output:    opts.Output,
		DryRun:    !opts.Apply,
		StartedAt: time.Now().UTC(),
		Items:     []domain.UpdateItem{},
	}
	if strings.TrimSpace(opts.Output) == "" {
		return rr, errors.New("output 不能为空")
	}

	var lock *flock.Flock
	if opts.Apply {
		if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
			return rr, err
		}
		lock = flock.New(opts.Output + ".lock")
		ok, err := lock.TryLock()
		if err != nil {
			return rr, fmt.Errorf("获取列表文件锁失败：%w", err)
		}
		if !ok {
			return rr, ErrLocked
		}
		defer func() { _ = lock.Unlock() }()
	}

	existing, err := ReadList(opts.Output)
	if err != nil {
		return rr, err
	}

	favs, err := deps.Site.Favorites(ctx, deps.PageClient, opts.Username)
	if err != nil {
		if errors.Is(err, letterboxd.ErrNoFavoritesSection) {
			logger.Warn("未找到收藏区，请检查用户名",
				logging.Event("favourites_section_missing"),
				slog.String("username", opts.Username),
			)
			return rr, fmt.Errorf("%w: %v", ErrNoFavorites, err)
		}
		return rr, fmt.Errorf("抓取用户主页失败：%w", err)
	}
	if len(favs) == 0 {
		return rr, ErrNoFavorites
	}
	if deps.Observer != nil {
		deps.Observer.OnStart(opts, len(favs))
	}

	store := cache.New(opts.CacheDir, !opts.Apply)
	items := processAll(ctx, opts, deps, store, existing, favs)

	merged := append([]domain.SpecialMovie{}, existing...)
	for _, it := range items {
		if it.Status == domain.StatusProcessed && it.RGB != nil {
			merged = append(merged, domain.SpecialMovie{ID: domain.FilmID(it.ID), Title: it.Title, RGB: *it.RGB})
		}
	}
	rr.Items = items

	if opts.Apply && len(merged) > 0 {
		if err := WriteList(opts.Output, merged); err != nil {
			return rr, fmt.Errorf("写入列表失败：%w", err)
		}
		rr.Saved = true
		logger.Info("列表已写入",
			logging.Event("special_list_saved"),
			slog.String("path", opts.Output),
			slog.Int("entries", len(merged)),
		)
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize(len(merged))
	return rr, nil
}

// processAll 用 worker pool 处理每部收藏，结果按收藏区顺序返回。
func processAll(ctx context.Context, opts Options, deps Deps, store cache.Store, existing []domain.SpecialMovie, favs []domain.Favorite) []domain.UpdateItem {
	known := make(map[domain.FilmID]struct{}, len(existing))
	for _, m := range existing {
		if !m.ID.IsZero() {
			known[m.ID] = struct{}{}
		}
	}

	items := make([]domain.UpdateItem, len(favs))
	type job struct {
		idx int
		fav domain.Favorite
	}
	type result struct {
		idx  int
		item domain.UpdateItem
		dur  time.Duration
	}

	// 已存在与收藏区内重复的影片不进入 worker，先于 worker 结果上报。
	var pending []job
	done := 0
	seen := make(map[domain.FilmID]struct{}, len(favs))
	for i, f := range favs {
		_, inList := known[f.ID]
		_, dup := seen[f.ID]
		if inList || dup {
			items[i] = domain.UpdateItem{ID: string(f.ID), Title: f.Title, Status: domain.StatusSkipped, Reason: domain.ReasonAlreadyExists}
			done++
			if deps.Observer != nil {
				deps.Observer.OnItemDone(done, len(favs), items[i], 0)
			}
			continue
		}
		seen[f.ID] = struct{}{}
		pending = append(pending, job{idx: i, fav: f})
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan job)
	results := make(chan result, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				started := time.Now()
				results <- result{idx: j.idx, item: processOne(ctx, opts, deps, store, j.fav), dur: time.Since(started)}
			}
		}()
	}

	go func() {
		for _, j := range pending {
			jobs <- j
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for r := range results {
		done++
		items[r.idx] = r.item
		if deps.Observer != nil {
			deps.Observer.OnItemDone(done, len(favs), r.item, r.dur)
		}
	}
	return items
}

func processOne(ctx context.Context, opts Options, deps Deps, store cache.Store, fav domain.Favorite) domain.UpdateItem {
	logger := logging.NewComponentLogger(deps.Logger, "favorites").With(
		slog.String(logging.FieldFilmID, string(fav.ID)),
		slog.String(logging.FieldFilmName, fav.Title),
	)
	item := domain.UpdateItem{ID: string(fav.ID), Title: fav.Title, PosterURL: fav.PosterURL}

	rgb, used, err := posterColor(ctx, opts, deps, store, fav, logger)
	if used != "" {
		item.PosterURL = used
	}
	if err != nil {
		if ctx.Err() != nil {
			item.Status = domain.StatusFailed
			item.Reason = ctx.Err().Error()
			return item
		}
		logger.Warn("海报主色计算失败，跳过该影片",
			logging.Event("poster_color_failed"),
			logging.Error(err),
		)
		item.Status = domain.StatusSkipped
		item.Reason = domain.ReasonColorFailed
		return item
	}

	item.Status = domain.StatusProcessed
	item.RGB = &rgb
	return item
}

type posterCandidate struct {
	u     string
	delay time.Duration
}

// posterColor 先在主地址上尝试 Attempts 次（间隔 RetryDelay），
// 全部失败后换成去掉 slug 数字后缀的回退地址再尝试 Attempts 次（间隔 FallbackDelay）。
func posterColor(ctx context.Context, opts Options, deps Deps, store cache.Store, fav domain.Favorite, logger *slog.Logger) (domain.RGB, string, error) {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}

	urls := []posterCandidate{{u: fav.PosterURL, delay: opts.RetryDelay}}
	if stripped := letterboxd.StripSlugNumbers(fav.Slug); stripped != fav.Slug {
		urls = append(urls, posterCandidate{
			u:     letterboxd.PosterURL(posterBase(fav.PosterURL), fav.ID, stripped),
			delay: opts.FallbackDelay,
		})
	}

	var (
		lastErr error
		lastURL string
	)
	for _, cand := range urls {
		lastURL = cand.u
		for attempt := 1; attempt <= attempts; attempt++ {
			rgb, err := colorOf(ctx, deps.ImageClient, store, fav.ID, cand.u)
			if err == nil {
				return rgb, cand.u, nil
			}
			lastErr = err
			logger.Debug("海报处理失败",
				slog.String(logging.FieldURL, cand.u),
				slog.Int("attempt", attempt),
				slog.Int("attempts", attempts),
				logging.Error(err),
			)
			if attempt < attempts {
				if err := sleepFunc(ctx, cand.delay); err != nil {
					return domain.RGB{}, lastURL, err
				}
			}
		}
	}
	return domain.RGB{}, lastURL, lastErr
}

func colorOf(ctx context.Context, c *http.Client, store cache.Store, id domain.FilmID, u string) (domain.RGB, error) {
	if b, ok, err := store.ReadPoster(id, u); err == nil && ok {
		if rgb, err := imgx.DominantColor(b); err == nil {
			return rgb, nil
		}
		// 坏缓存：忽略，走网络。
	}

	if c == nil {
		return domain.RGB{}, errors.New("image client 为空")
	}
	b, err := letterboxd.Get(ctx, c, u)
	if err != nil {
		return domain.RGB{}, err
	}
	rgb, err := imgx.DominantColor(b)
	if err != nil {
		return domain.RGB{}, err
	}
	if !store.ReadOnly {
		_ = store.WritePoster(id, u, b)
	}
	return rgb, nil
}

// posterBase 从完整海报地址中取出 "<scheme>://<host>" 部分。
func posterBase(posterURL string) string {
	if i := strings.Index(posterURL, "/resized/"); i > 0 {
		return posterURL[:i]
	}
	return letterboxd.DefaultPosterBaseURL
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReadList 读取已有列表文件；文件不存在时返回空列表。
func ReadList(path string) ([]domain.SpecialMovie, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.SpecialMovie{}, nil
		}
		return nil, err
	}
	list, err := speciallist.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("读取已有列表 %q 失败：%w", path, err)
	}
	return list, nil
}

// WriteList 以 2 空格缩进、UTF-8 原样（不转义 HTML/非 ASCII）原子写入列表。
func WriteList(path string, list []domain.SpecialMovie) error {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), []byte(buf.String()))
}
