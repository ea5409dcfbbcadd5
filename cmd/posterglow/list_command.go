package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/posterglow/internal/config"
	"github.com/John-Robertt/posterglow/internal/effect"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "拉取并显示特殊电影列表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			out := cmd.OutOrStdout()
			if asJSON || !isTTY(out) {
				return writeJSON(out, list)
			}

			rows := make([][]string, 0, len(list))
			for _, m := range list {
				rows = append(rows, []string{orDash(m.ID.String()), m.Title, formatRGB(m.RGB), effect.Glow(m)})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Title", "RGB", "box-shadow"}, rows, []columnAlignment{alignRight}))
			fmt.Fprintf(out, "共 %d 条\n", len(list))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "始终输出 JSON")
	return cmd
}
