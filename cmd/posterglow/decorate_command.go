package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/posterglow/internal/config"
	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/glow"
	"github.com/John-Robertt/posterglow/internal/infra/fsx"
	"github.com/John-Robertt/posterglow/internal/letterboxd"
	"github.com/John-Robertt/posterglow/internal/logging"
	"github.com/John-Robertt/posterglow/internal/page"
	"github.com/John-Robertt/posterglow/internal/page/htmldoc"
)

type decorateOptions struct {
	filmID   string
	filmName string
	output   string
	force    bool
}

func newDecorateCommand(ctx *commandContext) *cobra.Command {
	var opts decorateOptions

	cmd := &cobra.Command{
		Use:   "decorate <file|url|->",
		Short: "读取影片页 HTML，命中特殊电影时给海报加光晕后输出",
		Long: `读取 Letterboxd 影片页 HTML（文件、"-" 表示 stdin，或 https://letterboxd.com/film/* 地址），
拉取特殊电影列表并匹配当前影片；命中时给 .film-poster img 加上 box-shadow。

当前影片默认从页面脚本中的 filmData 读取；也可以用 --film-id / --film-name 显式指定。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecorate(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.filmID, "film-id", "", "当前影片 id（覆盖页面中的 filmData.id）")
	cmd.Flags().StringVar(&opts.filmName, "film-name", "", "当前影片名（覆盖页面中的 filmData.name）")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "写入文件而不是 stdout")
	cmd.Flags().BoolVar(&opts.force, "force", false, "--output 已存在时覆盖")
	return cmd
}

func runDecorate(cmd *cobra.Command, cc *commandContext, src string, opts decorateOptions) error {
	rt, err := cc.load(cmd, config.CLIArgs{})
	if err != nil {
		return err
	}
	ctx := commandCtx(cmd)
	logger := logging.NewComponentLogger(rt.logger, "decorate")

	raw, err := readPage(cmd, rt, src)
	if err != nil {
		return err
	}
	doc, err := htmldoc.Parse(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("解析页面失败：%w", err)
	}

	fetcher, err := rt.fetcher()
	if err != nil {
		return err
	}

	session := glow.New(doc, hostContext(cmd, doc, opts), fetcher, rt.logger)
	defer session.Close()

	outcome := session.Start(ctx)
	logger.Info("页面检查完成",
		logging.Event("decorate_done"),
		slog.String("outcome", string(outcome)),
		slog.Bool("list_ok", session.FetchOK()),
	)

	if strings.TrimSpace(opts.output) == "" {
		return doc.Render(cmd.OutOrStdout())
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return err
	}
	out, err := filepath.Abs(opts.output)
	if err != nil {
		return err
	}
	dir, name := filepath.Dir(out), filepath.Base(out)
	if opts.force {
		err = fsx.WriteFileAtomicReplace(dir, name, buf.Bytes())
	} else {
		err = fsx.WriteFileAtomicNoOverwrite(dir, name, buf.Bytes())
	}
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("输出文件已存在：%s（使用 --force 覆盖）", out)
	}
	return err
}

// readPage 读取页面：'-' 为 stdin；http(s) 地址必须是影片页；其余视为本地文件。
func readPage(cmd *cobra.Command, rt *runtime, src string) ([]byte, error) {
	switch {
	case src == "-":
		return io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		if !page.MatchesFilmURL(src) {
			return nil, fmt.Errorf("只支持 https://letterboxd.com/film/* 页面：%q", src)
		}
		hc, err := rt.pageClient()
		if err != nil {
			return nil, err
		}
		return letterboxd.Get(commandCtx(cmd), hc, src)
	default:
		return os.ReadFile(src)
	}
}

// hostContext 优先使用命令行给出的影片信息；否则每次检查时重新读取页面里的 filmData
// （站内导航替换脚本后读到的是新影片）。
func hostContext(cmd *cobra.Command, doc *htmldoc.Document, opts decorateOptions) glow.HostContext {
	if cmd.Flags().Changed("film-id") || cmd.Flags().Changed("film-name") {
		film := domain.FilmContext{ID: domain.FilmID(strings.TrimSpace(opts.filmID)), Name: opts.filmName}
		return func() (domain.FilmContext, bool) { return film, true }
	}
	return doc.FilmContext
}
