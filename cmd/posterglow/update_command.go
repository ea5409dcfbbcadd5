package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/posterglow/internal/config"
	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/favorites"
	"github.com/John-Robertt/posterglow/internal/infra/httpx"
	"github.com/John-Robertt/posterglow/internal/letterboxd"
)

// errUpdateIncomplete 表示有影片处理失败（报告已输出）。
var errUpdateIncomplete = errors.New("部分影片处理失败")

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var (
		output      string
		apply       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "update [username]",
		Short: "抓取用户收藏、计算海报主色，合并进特殊电影列表（默认 dry-run）",
		Long: `抓取 https://letterboxd.com/<username>/ 的收藏区，对列表中还没有的影片下载海报并计算主色，
按收藏顺序追加到列表文件。

默认 dry-run：只输出报告，不写列表也不写缓存；--apply 才会写入。
stdout 是 TTY 时输出表格，否则输出单个 JSON 报告；日志与进度走 stderr。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				Output:         output,
				OutputSet:      cmd.Flags().Changed("output"),
				Apply:          apply,
				ApplySet:       cmd.Flags().Changed("apply"),
				Concurrency:    concurrency,
				ConcurrencySet: cmd.Flags().Changed("concurrency"),
			}
			if len(args) == 1 {
				cli.Username = args[0]
			}
			return runUpdate(cmd, ctx, cli)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "列表文件路径（默认 letterboxd_favorites.json）")
	cmd.Flags().BoolVar(&apply, "apply", false, "写入列表与海报缓存；支持 --apply=false 覆盖配置中的 apply=true")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "海报处理并发数（1-8）")
	return cmd
}

func runUpdate(cmd *cobra.Command, cc *commandContext, cli config.CLIArgs) error {
	rt, err := cc.load(cmd, cli)
	if err != nil {
		return err
	}
	u := rt.cfg.Update
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("未指定用户名：传入 [username] 或在配置文件中设置 update.username")
	}

	pageClient, err := rt.pageClient()
	if err != nil {
		return err
	}
	imageClient, err := httpx.NewImageClient(rt.cfg.ProxyURL, rt.cfg.ImageProxy)
	if err != nil {
		return err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	deps := favorites.Deps{
		Site:        letterboxd.Client{BaseURL: u.ProfileBaseURL, PosterBaseURL: u.PosterBaseURL},
		PageClient:  pageClient,
		ImageClient: imageClient,
		Logger:      rt.logger,
	}
	var ui *progressUI
	if w, interactive := pickProgressWriter(stdout, stderr); interactive {
		ui = newProgressUI(w, rt.cfg.ProxyURL)
		deps.Observer = ui
	}

	rr, err := favorites.Update(commandCtx(cmd), favorites.Options{
		Username:      u.Username,
		Output:        u.Output,
		Apply:         u.Apply,
		Concurrency:   u.Concurrency,
		Attempts:      u.Attempts,
		RetryDelay:    u.RetryDelay,
		FallbackDelay: u.FallbackDelay,
		CacheDir:      u.CacheDir,
	}, deps)
	if ui != nil {
		ui.Stop()
	}
	if err != nil {
		return err
	}

	if err := emitReport(stdout, stderr, rr); err != nil {
		return err
	}
	if rr.Summary.Failed > 0 {
		return errUpdateIncomplete
	}
	return nil
}

// emitReport：stdout 是 TTY 时输出表格；否则 stdout 必须且仅输出一个 UpdateReport JSON（摘要走 stderr）。
func emitReport(stdout, stderr io.Writer, rr domain.UpdateReport) error {
	summary := fmt.Sprintf("完成：processed=%d skipped=%d failed=%d total=%d saved=%v",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Total, rr.Saved,
	)
	if !isTTY(stdout) {
		if err := writeJSON(stdout, rr); err != nil {
			return err
		}
		fmt.Fprintln(stderr, summary)
		return nil
	}

	rows := make([][]string, 0, len(rr.Items))
	for _, it := range rr.Items {
		rgb := "-"
		if it.RGB != nil {
			rgb = formatRGB(*it.RGB)
		}
		rows = append(rows, []string{it.ID, it.Title, it.Status, orDash(it.Reason), rgb})
	}
	fmt.Fprintln(stdout, renderTable([]string{"ID", "Title", "Status", "Reason", "RGB"}, rows, []columnAlignment{alignRight}))
	fmt.Fprintln(stdout, summary)
	if rr.DryRun {
		fmt.Fprintln(stdout, "dry-run：未写入列表，使用 --apply 写入")
	} else if rr.Saved {
		fmt.Fprintf(stdout, "list: %s\n", rr.Output)
	}
	return nil
}
