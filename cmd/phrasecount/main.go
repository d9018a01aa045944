package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/phrasecount/internal/app/run"
	"github.com/John-Robertt/phrasecount/internal/config"
	"github.com/John-Robertt/phrasecount/internal/count"
	"github.com/John-Robertt/phrasecount/internal/domain"
	"github.com/John-Robertt/phrasecount/internal/infra/httpx"
	"github.com/John-Robertt/phrasecount/internal/logging"
	"github.com/John-Robertt/phrasecount/internal/provider/springfield"
)

const progName = "phrasecount"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError 携带进程退出码；msg 为空表示已自行输出过提示。
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

type rootFlags struct {
	configPath string
	jsonOut    bool
	breakdown  bool
	baseURL    string
	proxyURL   string
	timeout    time.Duration
	logLevel   string
	logFormat  string
}

// execute 运行一次 CLI 并返回退出码。stdout 只承载结果，其余一律写 stderr。
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(negativeNumbersAsPositional(args))
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(stderr, ee.msg)
		}
		return ee.code
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
	}
	return 1
}

var negativeIntRE = regexp.MustCompile(`^-\d+$`)

// negativeNumbersAsPositional 把形如 -5 的参数移到 "--" 之后，
// 否则 pflag 会把它当作未知短参数；<threads> 为负数时应回退默认值而不是报错。
// 总是返回非 nil 切片（cobra 在 args 为 nil 时会回退读取 os.Args）。
func negativeNumbersAsPositional(args []string) []string {
	out := make([]string, 0, len(args)+1)
	var tail []string
	for i, a := range args {
		if a == "--" {
			tail = append(tail, args[i+1:]...)
			break
		}
		if negativeIntRE.MatchString(a) {
			tail = append(tail, a)
			continue
		}
		out = append(out, a)
	}
	if len(tail) == 0 {
		return out
	}
	out = append(out, "--")
	return append(out, tail...)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   progName + " <series> <regex> [<threads>]",
		Short: "Count how often a phrase is spoken across every episode of a TV show",
		Long: `phrasecount downloads the episode index of a show from springfieldspringfield,
fetches every episode transcript concurrently and counts case-insensitive
matches of <regex> (Go RE2 syntax).

<threads> is the number of concurrent downloads (default 10); a
non-numeric, zero or negative value (e.g. -5) falls back to the default.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, args, f, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: 2, msg: err.Error()}
	})

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "TOML config file (default ./"+config.FileName+", optional)")
	flags.BoolVar(&f.jsonOut, "json", false, "print the run report as JSON instead of the text summary")
	flags.BoolVar(&f.breakdown, "breakdown", false, "render a per-episode table to stderr")
	flags.StringVar(&f.baseURL, "base-url", "", "site root (default "+springfield.DefaultBaseURL+")")
	flags.StringVar(&f.proxyURL, "proxy", "", "HTTP proxy URL")
	flags.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "per-request timeout (0 disables)")
	flags.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "debug|info|warn|error")
	flags.StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "console|json")

	return cmd
}

func runCount(cmd *cobra.Command, args []string, f rootFlags, stdout, stderr io.Writer) error {
	if len(args) < 2 {
		fmt.Fprintf(stdout, "%s requires show title and phrase as parameters\n", progName)
		return &exitError{code: 2}
	}
	title, pattern := args[0], args[1]

	re, err := count.Compile(pattern)
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("invalid regex %q: %v", pattern, err)}
	}

	cli := config.CLIArgs{
		ConfigPath:   f.configPath,
		BaseURL:      f.baseURL,
		BaseURLSet:   cmd.Flags().Changed("base-url"),
		ProxyURL:     f.proxyURL,
		ProxyURLSet:  cmd.Flags().Changed("proxy"),
		Timeout:      f.timeout,
		TimeoutSet:   cmd.Flags().Changed("timeout"),
		LogLevel:     f.logLevel,
		LogLevelSet:  cmd.Flags().Changed("log-level"),
		LogFormat:    f.logFormat,
		LogFormatSet: cmd.Flags().Changed("log-format"),
	}
	if len(args) >= 3 {
		cli.Threads, cli.ThreadsSet = config.ParseThreads(args[2])
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Writer: stderr})
	if err != nil {
		return err
	}
	if eff.Source != "" {
		logger.Debug("config loaded", "path", eff.Source)
	}

	client, err := httpx.NewClient(httpx.Options{
		ProxyURL:  eff.ProxyURL,
		Timeout:   eff.Timeout,
		UserAgent: eff.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}

	var obs run.Observer
	var ui *progressUI
	if isTerminal(stderr) {
		ui = newProgressUI(stderr, eff)
		obs = ui
	}

	rr, err := run.Execute(cmd.Context(), run.Options{
		Title:    title,
		Pattern:  pattern,
		Regexp:   re,
		Threads:  eff.Threads,
		Provider: springfield.Provider{BaseURL: eff.BaseURL},
		Client:   client,
		Logger:   logger,
	}, obs)
	if ui != nil {
		ui.Close()
	}
	if err != nil {
		return err
	}

	if err := emitReport(stdout, rr, f.jsonOut); err != nil {
		return err
	}
	if f.breakdown && rr.Outcome == domain.OutcomeCounted {
		fmt.Fprintln(stderr, renderBreakdown(rr))
	}
	return nil
}

func emitReport(w io.Writer, rr domain.Report, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(rr)
	}
	for _, line := range rr.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// isTerminal 只对真实终端返回 true；测试中的 buffer 永远是 false。
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
