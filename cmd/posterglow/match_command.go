package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/posterglow/internal/config"
	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/effect"
	"github.com/John-Robertt/posterglow/internal/match"
)

// errNoMatch 让脚本可以用退出码判断是否命中。
var errNoMatch = errors.New("未匹配到特殊电影")

type matchResult struct {
	Entry     domain.SpecialMovie `json:"entry"`
	Color     string              `json:"color"`
	BoxShadow string              `json:"box_shadow"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var (
		id     string
		name   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "用给定的影片 id / 名称匹配特殊电影列表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(id) == "" && name == "" {
				return errors.New("--id 与 --name 至少指定一个")
			}
			rt, err := ctx.load(cmd, config.CLIArgs{})
			if err != nil {
				return err
			}
			fetcher, err := rt.fetcher()
			if err != nil {
				return err
			}
			list, err := fetcher.Fetch(commandCtx(cmd))
			if err != nil {
				return err
			}

			m, ok := match.Find(list, domain.FilmContext{ID: domain.FilmID(strings.TrimSpace(id)), Name: name})
			if !ok {
				return errNoMatch
			}
			res := matchResult{Entry: m, Color: effect.Color(m.RGB), BoxShadow: effect.Glow(m)}

			out := cmd.OutOrStdout()
			if asJSON || !isTTY(out) {
				return writeJSON(out, res)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "RGB", "box-shadow"},
				[][]string{{orDash(m.ID.String()), m.Title, formatRGB(m.RGB), res.BoxShadow}},
				nil,
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "影片 id")
	cmd.Flags().StringVar(&name, "name", "", "影片名（与列表中的 title 完全相等才算命中）")
	cmd.Flags().BoolVar(&asJSON, "json", false, "始终输出 JSON")
	return cmd
}
