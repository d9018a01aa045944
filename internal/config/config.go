package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/phrasecount/internal/provider/springfield"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是默认配置文件名（位于 cwd，可选）。
	FileName = "phrasecount.toml"

	DefaultThreads   = 10
	DefaultTimeout   = 20 * time.Second
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
)

// CLIArgs 是 CLI 暴露的覆盖项，保留“是否显式指定”的信息，
// 这样 --timeout=0 才能覆盖配置文件里的非零值。
type CLIArgs struct {
	ConfigPath string

	Threads    int
	ThreadsSet bool

	BaseURL    string
	BaseURLSet bool

	ProxyURL    string
	ProxyURLSet bool

	Timeout    time.Duration
	TimeoutSet bool

	LogLevel    string
	LogLevelSet bool

	LogFormat    string
	LogFormatSet bool
}

// FileConfig 对应 phrasecount.toml 的解析结构。
type FileConfig struct {
	Threads        int    `toml:"threads"`
	BaseURL        string `toml:"base_url"`
	ProxyURL       string `toml:"proxy_url"`
	TimeoutSeconds *int   `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Source 是实际读取的配置文件路径；未读取任何文件时为空。
	Source string

	Threads   int
	BaseURL   string
	ProxyURL  string
	Timeout   time.Duration // 0 表示不设超时
	UserAgent string

	LogLevel  string
	LogFormat string
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
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
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

// ParseThreads 解析位置参数 <threads>；只接受正整数，其余一律视为未指定。
func ParseThreads(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 指定 --config：文件必须存在
// 2) 否则尝试 <cwd>/phrasecount.toml（可选）
//
// 覆盖优先级：CLI > 配置文件 > 内置默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	var (
		cfgPath string
		fc      FileConfig
		exists  bool
		err     error
	)

	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwd, p)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwd, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	eff, err := merge(cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if exists {
		eff.Source = cfgPath
	}
	return eff, nil
}

func merge(cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	// threads：CLI > config > 默认；非正数一律回退默认值（不报错）。
	threads := DefaultThreads
	if cli.ThreadsSet && cli.Threads > 0 {
		threads = cli.Threads
	} else if fc.Threads > 0 {
		threads = fc.Threads
	}

	baseURL := strings.TrimSpace(fc.BaseURL)
	if cli.BaseURLSet {
		baseURL = strings.TrimSpace(cli.BaseURL)
	}
	if baseURL == "" {
		baseURL = springfield.DefaultBaseURL
	}
	if err := validateHTTPURL("base_url", baseURL); err != nil {
		return EffectiveConfig{}, err
	}

	proxyURL := strings.TrimSpace(fc.ProxyURL)
	if cli.ProxyURLSet {
		proxyURL = strings.TrimSpace(cli.ProxyURL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, fmt.Errorf("proxy_url 无效：%w", err)
		}
	}

	timeout := DefaultTimeout
	if fc.TimeoutSeconds != nil {
		timeout = time.Duration(*fc.TimeoutSeconds) * time.Second
	}
	if cli.TimeoutSet {
		timeout = cli.Timeout
	}
	if timeout < 0 {
		return EffectiveConfig{}, fmt.Errorf("timeout 不能为负数：%s", timeout)
	}

	logLevel := pick(cli.LogLevelSet, cli.LogLevel, fc.LogLevel, DefaultLogLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("log_level 只能是 debug|info|warn|error，实际是 %q", logLevel)
	}
	logFormat := pick(cli.LogFormatSet, cli.LogFormat, fc.LogFormat, DefaultLogFormat)
	switch logFormat {
	case "console", "json":
	default:
		return EffectiveConfig{}, fmt.Errorf("log_format 只能是 console|json，实际是 %q", logFormat)
	}

	return EffectiveConfig{
		Threads:   threads,
		BaseURL:   baseURL,
		ProxyURL:  proxyURL,
		Timeout:   timeout,
		UserAgent: strings.TrimSpace(fc.UserAgent),
		LogLevel:  logLevel,
		LogFormat: logFormat,
	}, nil
}

func pick(cliSet bool, cliValue, fileValue, def string) string {
	v := strings.ToLower(strings.TrimSpace(fileValue))
	if cliSet {
		v = strings.ToLower(strings.TrimSpace(cliValue))
	}
	if v == "" {
		return def
	}
	return v
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
