// Package config 负责发现并读取 posterglow.toml，并与 CLI 参数合并为 EffectiveConfig。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/posterglow/internal/logging"
	"github.com/John-Robertt/posterglow/internal/speciallist"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是 cwd 下自动发现的配置文件名。
const FileName = "posterglow.toml"

const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = logging.FormatConsole
	DefaultOutput        = "letterboxd_favorites.json"
	DefaultConcurrency   = 2
	DefaultAttempts      = 2
	DefaultRetryDelay    = 10 * time.Second
	DefaultFallbackDelay = 2 * time.Second

	maxConcurrency = 8
	maxAttempts    = 5
)

// CLIArgs 保留每个参数“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 update.apply=true。
type CLIArgs struct {
	ConfigPath string

	ListURL    string
	ListURLSet bool

	LogLevel     string
	LogLevelSet  bool
	LogFormat    string
	LogFormatSet bool

	// Username 来自 update 的位置参数；空串表示未指定。
	Username string

	Output    string
	OutputSet bool

	Apply    bool
	ApplySet bool

	Concurrency    int
	ConcurrencySet bool
}

// FileConfig 对应 posterglow.toml 的解析结构。未知键视为配置错误。
type FileConfig struct {
	ListURL string       `toml:"list_url"`
	Log     LogConfig    `toml:"log"`
	Proxy   ProxyConfig  `toml:"proxy"`
	Update  UpdateConfig `toml:"update"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ProxyConfig struct {
	URL string `toml:"url"`
	// ImageProxy 为 true 时海报下载也走代理（默认只有页面请求走代理）。
	ImageProxy bool `toml:"image_proxy"`
}

type UpdateConfig struct {
	Username             string   `toml:"username"`
	Output               string   `toml:"output"`
	Apply                *bool    `toml:"apply"`
	Concurrency          int      `toml:"concurrency"`
	Attempts             int      `toml:"attempts"`
	RetryDelaySeconds    *float64 `toml:"retry_delay_seconds"`
	FallbackDelaySeconds *float64 `toml:"fallback_delay_seconds"`
	CacheDir             string   `toml:"cache_dir"`
	ProfileBaseURL       string   `toml:"profile_base_url"`
	PosterBaseURL        string   `toml:"poster_base_url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 为实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	ListURL   string
	LogLevel  string
	LogFormat string

	ProxyURL   string
	ImageProxy bool

	Update UpdateSettings
}

type UpdateSettings struct {
	Username string
	Output   string // 绝对路径
	Apply    bool

	Concurrency   int
	Attempts      int
	RetryDelay    time.Duration
	FallbackDelay time.Duration

	// CacheDir 为空表示关闭海报缓存。
	CacheDir string

	ProfileBaseURL string
	PosterBaseURL  string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/posterglow.toml（可选）
//
// 覆盖优先级：CLI（显式指定）> 配置文件 > 内置默认。
// 相对路径（output/cache_dir）以配置文件所在目录为基准；没有配置文件时以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	base := cwdAbs
	if exists {
		base = filepath.Dir(cfgPath)
	} else {
		cfgPath = ""
	}
	eff, err := merge(cwdAbs, base, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigPath = cfgPath
	return eff, nil
}

func merge(cwd, base string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		ListURL:   pick(cli.ListURLSet, cli.ListURL, fc.ListURL, speciallist.DefaultURL),
		LogLevel:  strings.ToLower(pick(cli.LogLevelSet, cli.LogLevel, fc.Log.Level, DefaultLogLevel)),
		LogFormat: strings.ToLower(pick(cli.LogFormatSet, cli.LogFormat, fc.Log.Format, DefaultLogFormat)),
	}
	if err := validateHTTPURL("list_url", eff.ListURL); err != nil {
		return EffectiveConfig{}, err
	}
	if _, err := logging.ParseLevel(eff.LogLevel); err != nil {
		return EffectiveConfig{}, fmt.Errorf("log.level 无效：%w", err)
	}
	switch eff.LogFormat {
	case logging.FormatAuto, logging.FormatConsole, logging.FormatJSON:
	default:
		return EffectiveConfig{}, fmt.Errorf("log.format 只能是 auto/console/json，实际是 %q", eff.LogFormat)
	}

	eff.ProxyURL = strings.TrimSpace(fc.Proxy.URL)
	if eff.ProxyURL != "" {
		if _, err := url.Parse(eff.ProxyURL); err != nil {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%w", err)
		}
	}
	if fc.Proxy.ImageProxy && eff.ProxyURL == "" {
		return EffectiveConfig{}, errors.New("proxy.image_proxy=true 但 proxy.url 为空")
	}
	eff.ImageProxy = fc.Proxy.ImageProxy

	u, err := mergeUpdate(cwd, base, cli, fc.Update)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.Update = u
	return eff, nil
}

func mergeUpdate(cwd, base string, cli CLIArgs, uc UpdateConfig) (UpdateSettings, error) {
	s := UpdateSettings{
		Username:       strings.TrimSpace(uc.Username),
		ProfileBaseURL: strings.TrimSpace(uc.ProfileBaseURL),
		PosterBaseURL:  strings.TrimSpace(uc.PosterBaseURL),
	}
	if u := strings.TrimSpace(cli.Username); u != "" {
		s.Username = u
	}

	// CLI 给出的 output 相对 cwd；配置文件中的相对配置文件目录。
	switch {
	case cli.OutputSet && strings.TrimSpace(cli.Output) != "":
		s.Output = absCleanFrom(cwd, cli.Output)
	case strings.TrimSpace(uc.Output) != "":
		s.Output = absCleanFrom(base, uc.Output)
	default:
		s.Output = absCleanFrom(cwd, DefaultOutput)
	}

	if cli.ApplySet {
		s.Apply = cli.Apply
	} else if uc.Apply != nil {
		s.Apply = *uc.Apply
	}

	s.Concurrency = uc.Concurrency
	if cli.ConcurrencySet {
		s.Concurrency = cli.Concurrency
	}
	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	s.Concurrency = clamp(s.Concurrency, 1, maxConcurrency)

	s.Attempts = uc.Attempts
	if s.Attempts == 0 {
		s.Attempts = DefaultAttempts
	}
	s.Attempts = clamp(s.Attempts, 1, maxAttempts)

	var err error
	if s.RetryDelay, err = seconds("update.retry_delay_seconds", uc.RetryDelaySeconds, DefaultRetryDelay); err != nil {
		return UpdateSettings{}, err
	}
	if s.FallbackDelay, err = seconds("update.fallback_delay_seconds", uc.FallbackDelaySeconds, DefaultFallbackDelay); err != nil {
		return UpdateSettings{}, err
	}

	if strings.TrimSpace(uc.CacheDir) != "" {
		s.CacheDir = absCleanFrom(base, uc.CacheDir)
	}

	if s.ProfileBaseURL != "" {
		if err := validateHTTPURL("update.profile_base_url", s.ProfileBaseURL); err != nil {
			return UpdateSettings{}, err
		}
	}
	if s.PosterBaseURL != "" {
		if err := validateHTTPURL("update.poster_base_url", s.PosterBaseURL); err != nil {
			return UpdateSettings{}, err
		}
	}
	return s, nil
}

func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet && strings.TrimSpace(cliVal) != "" {
		return strings.TrimSpace(cliVal)
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func seconds(name string, v *float64, def time.Duration) (time.Duration, error) {
	if v == nil {
		return def, nil
	}
	if *v < 0 {
		return 0, fmt.Errorf("%s 不能为负数：%v", name, *v)
	}
	return time.Duration(*v * float64(time.Second)), nil
}

func validateHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", name, raw)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
