// Package glow 把“拉取列表 → 匹配当前影片 → 给海报上色”串成一次页面浏览内的完整流程，
// 并在页面子树插入时对新元素重新检查（站内导航会重建海报元素）。
package glow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/effect"
	"github.com/John-Robertt/posterglow/internal/logging"
	"github.com/John-Robertt/posterglow/internal/match"
	"github.com/John-Robertt/posterglow/internal/page"
)

// State 是一次页面浏览内的流程状态。
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateReady       State = "ready"
	StateFetchFailed State = "fetch_failed"
	StateChecked     State = "checked"
	StateClosed      State = "closed"
)

// Outcome 是一次检查的结果。
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeNoMatch       Outcome = "no_match"
	OutcomeNoHostContext Outcome = "no_host_context"
	OutcomeNoPoster      Outcome = "no_poster"
	OutcomeEmptyList     Outcome = "empty_list"
)

// HostContext 从宿主页面读取当前影片；宿主尚未初始化时返回 ok=false。
type HostContext func() (domain.FilmContext, bool)

// ListSource 提供特殊电影列表。失败时返回空列表与 ok=false，而不是报错（见 speciallist.Fetcher.Load）。
type ListSource interface {
	Load(ctx context.Context) (list []domain.SpecialMovie, ok bool)
}

// ListFunc 把普通函数适配为 ListSource。
type ListFunc func(ctx context.Context) ([]domain.SpecialMovie, bool)

func (f ListFunc) Load(ctx context.Context) ([]domain.SpecialMovie, bool) { return f(ctx) }

// Session 对应一次页面浏览。
//
// 约束：
// - 列表只在 Start 时拉取一次，之后所有检查复用同一份快照
// - 变更回调同步执行，不做 I/O
type Session struct {
	page   page.Page
	host   HostContext
	source ListSource
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	list    []domain.SpecialMovie
	fetchOK bool
	cancel  func()
	last    Outcome
	checks  int
}

// New 构造 Session。logger 为 nil 时不输出日志。
func New(p page.Page, host HostContext, source ListSource, logger *slog.Logger) *Session {
	return &Session{
		page:   p,
		host:   host,
		source: source,
		logger: logging.NewComponentLogger(logger, "glow"),
		state:  StateIdle,
	}
}

// Start 拉取列表、立即检查一次，然后订阅页面变更。重复调用无效果。
func (s *Session) Start(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.state != StateIdle {
		last := s.last
		s.mu.Unlock()
		return last
	}
	s.state = StateFetching
	s.mu.Unlock()

	var (
		list []domain.SpecialMovie
		ok   bool
	)
	if s.source != nil {
		list, ok = s.source.Load(ctx)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return OutcomeEmptyList
	}
	if list == nil {
		list = []domain.SpecialMovie{}
	}
	s.list = list
	s.fetchOK = ok
	if ok {
		s.state = StateReady
	} else {
		s.state = StateFetchFailed
	}
	s.mu.Unlock()

	out := s.Check()

	cancel := s.page.Observe(s.onMutations)
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		cancel()
		return out
	}
	s.cancel = cancel
	s.mu.Unlock()
	return out
}

// Check 用已拉取的列表对当前页面做一次匹配 + 上色。
func (s *Session) Check() Outcome {
	s.mu.Lock()
	list := s.list
	s.mu.Unlock()

	out := s.check(list)

	s.mu.Lock()
	s.checks++
	s.last = out
	if s.state != StateClosed && s.state != StateIdle && s.state != StateFetching {
		s.state = StateChecked
	}
	s.mu.Unlock()
	return out
}

func (s *Session) check(list []domain.SpecialMovie) Outcome {
	var (
		film domain.FilmContext
		ok   bool
	)
	if s.host != nil {
		film, ok = s.host()
	}
	if !ok {
		s.logger.Warn("filmData 尚不可用，跳过本次检查",
			logging.Event("host_context_missing"),
			slog.String(logging.FieldErrorHint, "后续页面变更会再次检查"),
		)
		return OutcomeNoHostContext
	}
	if len(list) == 0 {
		return OutcomeEmptyList
	}

	movie, found := match.Find(list, film)
	if !found {
		s.logger.Debug("当前影片不在特殊列表中",
			slog.String(logging.FieldFilmID, film.ID.String()),
			slog.String(logging.FieldFilmName, film.Name),
		)
		return OutcomeNoMatch
	}
	if !effect.Apply(s.page, movie) {
		s.logger.Debug("命中特殊电影但海报尚未出现",
			slog.String(logging.FieldFilmID, film.ID.String()),
			slog.String(logging.FieldFilmName, film.Name),
		)
		return OutcomeNoPoster
	}
	s.logger.Info("已应用海报发光效果",
		logging.Event("glow_applied"),
		slog.String(logging.FieldFilmID, film.ID.String()),
		slog.String(logging.FieldFilmName, film.Name),
		slog.String("color", effect.Color(movie.RGB)),
	)
	return OutcomeApplied
}

// onMutations 对每个新增的元素节点重新检查一次（不去抖，列表很小）。
func (s *Session) onMutations(batch []page.Mutation) {
	for _, m := range batch {
		for _, n := range m.AddedNodes {
			if !n.Element {
				continue
			}
			s.mu.Lock()
			closed := s.state == StateClosed
			s.mu.Unlock()
			if closed {
				return
			}
			s.Check()
		}
	}
}

// Close 取消变更订阅；之后的页面变更不再触发检查。
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.state = StateClosed
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FetchOK 表示 Start 时拿到了非空列表。
func (s *Session) FetchOK() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchOK
}

// Checks 返回已执行的检查次数（含 Start 时的首次检查）。
func (s *Session) Checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

// LastOutcome 返回最近一次检查的结果。
func (s *Session) LastOutcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
