package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"golang.org/x/net/html/charset"
)

// ByteCounter 累计已下载字节数（按响应声明的 Content-Length 计）。
// 多个 worker 并发 Add，读取值是精确的。
type ByteCounter struct {
	n atomic.Int64
}

func (c *ByteCounter) Add(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.n.Add(n)
}

func (c *ByteCounter) Total() int64 {
	if c == nil {
		return 0
	}
	return c.n.Load()
}

// Page 是一次 GET 的结果；Body 已转码为 UTF-8。
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	// Length 是响应声明的 Content-Length；透明解压时为解压后的字节数；其余未声明时为 0。
	Length int64
}

// Fetcher 负责单次 HTTP GET（无缓存、无重试、无限速）。
type Fetcher struct {
	Client *http.Client
	Bytes  *ByteCounter
}

// Get 请求 u 并返回页面。
//
// 错误分类：
// - 状态码 >= 400：*HTTPStatusError
// - 连接阶段失败：*UnreachableError
// - ctx 取消：ctx.Err()（原样包装）
func (f Fetcher) Get(ctx context.Context, u string) (Page, error) {
	if f.Client == nil {
		return Page{}, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, fmt.Errorf("请求 %s 被取消：%w", u, ctx.Err())
		}
		if connectFailed(err) {
			return Page{}, &UnreachableError{URL: u, Err: err}
		}
		return Page{}, err
	}
	defer resp.Body.Close()

	// 传输层透明解压 gzip 时 ContentLength=-1 且 Content-Length 头被移除：
	// 改为统计解压后的实际字节数。其余未声明长度的响应按 0 计。
	declared := resp.ContentLength
	var body io.Reader = resp.Body
	var decoded *countingReader
	if declared < 0 {
		declared = 0
		if resp.Uncompressed {
			decoded = &countingReader{r: resp.Body}
			body = decoded
		}
	}

	if resp.StatusCode >= 400 {
		if decoded != nil {
			_, _ = io.Copy(io.Discard, decoded)
			declared = decoded.n
		}
		f.Bytes.Add(declared)
		return Page{}, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}

	r, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		f.Bytes.Add(declared)
		return Page{}, fmt.Errorf("识别 %s 的字符集失败：%w", u, err)
	}
	b, err := io.ReadAll(r)
	if decoded != nil {
		declared = decoded.n
	}
	f.Bytes.Add(declared)
	if err != nil {
		return Page{}, fmt.Errorf("读取 %s 失败：%w", u, err)
	}
	return Page{URL: u, StatusCode: resp.StatusCode, Body: b, Length: declared}, nil
}

// countingReader 记录从 r 读出的字节数（转码之前）。
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
