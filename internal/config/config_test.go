package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/phrasecount/internal/provider/springfield"
)

func TestLoadEffective_DefaultsWithoutFile(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != "" {
		t.Fatalf("未读取配置文件时 Source 应为空，实际 %q", eff.Source)
	}
	if eff.Threads != DefaultThreads || eff.Timeout != DefaultTimeout {
		t.Fatalf("默认值不正确：%+v", eff)
	}
	if eff.BaseURL != springfield.DefaultBaseURL {
		t.Fatalf("期望默认 base_url，实际 %q", eff.BaseURL)
	}
	if eff.LogLevel != DefaultLogLevel || eff.LogFormat != DefaultLogFormat {
		t.Fatalf("日志默认值不正确：%+v", eff)
	}
}

func TestLoadEffective_FileThenCLIOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
threads = 4
base_url = "http://mirror.test/"
timeout_seconds = 5
user_agent = "phrasecount-test"
log_level = "DEBUG"
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != filepath.Join(cwd, FileName) {
		t.Fatalf("Source 不正确：%q", eff.Source)
	}
	if eff.Threads != 4 || eff.BaseURL != "http://mirror.test/" || eff.Timeout != 5*time.Second {
		t.Fatalf("配置文件字段未生效：%+v", eff)
	}
	if eff.UserAgent != "phrasecount-test" || eff.LogLevel != "debug" {
		t.Fatalf("配置文件字段未生效：%+v", eff)
	}

	eff, err = LoadEffective(cwd, CLIArgs{
		Threads: 16, ThreadsSet: true,
		Timeout: 0, TimeoutSet: true,
		LogLevel: "error", LogLevelSet: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Threads != 16 || eff.Timeout != 0 || eff.LogLevel != "error" {
		t.Fatalf("CLI 应覆盖配置文件：%+v", eff)
	}
}

func TestLoadEffective_InvalidThreadsFallBackToDefault(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`threads = -3`))

	eff, err := LoadEffective(cwd, CLIArgs{Threads: 0, ThreadsSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Threads != DefaultThreads {
		t.Fatalf("期望回退 %d，实际 %d", DefaultThreads, eff.Threads)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.toml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_ExplicitConfigRelativeToCwd(t *testing.T) {
	cwd := t.TempDir()
	if err := os.MkdirAll(filepath.Join(cwd, "conf"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeFile(t, filepath.Join(cwd, "conf", "x.toml"), []byte(`threads = 3`))

	eff, err := LoadEffective(cwd, CLIArgs{ConfigPath: filepath.Join("conf", "x.toml")})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Threads != 3 {
		t.Fatalf("期望 threads=3，实际 %d", eff.Threads)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":      `threads = `,
		"base_scheme": `base_url = "ftp://x.test/"`,
		"base_host":   `base_url = "not a url"`,
		"proxy":       `proxy_url = "http://[::1"`,
		"timeout":     `timeout_seconds = -1`,
		"log_level":   `log_level = "verbose"`,
		"log_format":  `log_format = "xml"`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(content))

			_, err := LoadEffective(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestParseThreads(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"4", 4, true},
		{" 12 ", 12, true},
		{"abc", 0, false},
		{"", 0, false},
		{"0", 0, false},
		{"-2", 0, false},
		{"3.5", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseThreads(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseThreads(%q)：期望 (%d,%v)，实际 (%d,%v)", c.in, c.want, c.ok, got, ok)
		}
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
