package provider

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// HTTPStatusError 表示站点返回了 >= 400 的 HTTP 状态码。
// 对索引页而言它意味着“剧名不存在”。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// UnreachableError 表示无法连上站点（DNS 失败、拒绝连接等），与 HTTP 状态无关。
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	return fmt.Sprintf("无法连接 %s：%v", e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// IsNotFound 判断 err 链上是否有 HTTPStatusError。
func IsNotFound(err error) bool {
	var hs *HTTPStatusError
	return errors.As(err, &hs)
}

// IsUnreachable 判断 err 链上是否有 UnreachableError。
func IsUnreachable(err error) bool {
	var ue *UnreachableError
	return errors.As(err, &ue)
}

// connectFailed 只认“连接建立阶段”的失败；连上之后的读超时等不算不可达。
func connectFailed(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
