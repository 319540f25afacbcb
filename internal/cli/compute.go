package cli

import (
	"fmt"

	"github.com/okian/shapley/internal/app"
	"github.com/okian/shapley/internal/domain/game"
	"github.com/spf13/cobra"
)

func newComputeCommand() *cobra.Command {
	var (
		file       string
		format     string
		maxPlayers int
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a game file locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()
			def, err := game.LoadFile(ctx, file)
			if err != nil {
				return err
			}

			svc := app.New(app.WithMaxPlayers(maxPlayers))
			rep, err := svc.Compute(ctx, def)
			if err != nil {
				if rep.Status != "" {
					_ = printReport(cmd.OutOrStdout(), rep, format)
				}
				return fmt.Errorf("compute %s: %w", file, err)
			}
			return printReport(cmd.OutOrStdout(), rep, format)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "game definition (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table or json")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 9, "refuse games with more players")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
