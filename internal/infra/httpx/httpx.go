package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options 描述抓取用 HTTP client 的网络策略。
type Options struct {
	// ProxyURL 非空：走代理，且禁用 keep-alive（每请求新连接）。
	ProxyURL string
	// Timeout 是单次请求的总超时；0 表示不设超时。
	Timeout time.Duration
	// UserAgent 非空时覆盖 Go 默认 UA。
	UserAgent string
}

// Transport 把“UA + 代理 + keep-alive 策略”固化为统一策略。
// 不做重试：一次调用就是一次请求。
type Transport struct {
	Base *http.Transport

	UserAgent string

	// DisableKeepAlives 决定是否对 Request 设置 Close=true（额外保险）。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	if t.UserAgent == "" && !t.DisableKeepAlives {
		return t.Base.RoundTrip(req)
	}

	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	if t.UserAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.UserAgent)
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

const maxResponseHeaderTimeout = 15 * time.Second

// responseHeaderTimeout 跟随总超时：0 表示不设超时，否则取 min(total, 15s)。
func responseHeaderTimeout(total time.Duration) time.Duration {
	if total <= 0 {
		return 0
	}
	return min(total, maxResponseHeaderTimeout)
}

// NewClient 构造用于剧集页面抓取的 HTTP client。
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 32,
	}
	base.ResponseHeaderTimeout = responseHeaderTimeout(opts.Timeout)

	disableKeepAlives := false
	if proxyURL := strings.TrimSpace(opts.ProxyURL); proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	tr := &Transport{
		Base:              base,
		UserAgent:         strings.TrimSpace(opts.UserAgent),
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   opts.Timeout,
	}, nil
}
