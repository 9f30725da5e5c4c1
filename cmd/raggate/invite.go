package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"raggate/internal/app/gateway/setup"
	pkgauth "raggate/internal/pkg/auth"
	"raggate/internal/pkg/database"
)

func newInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "邀请码管理",
	}

	var count, length int
	create := &cobra.Command{
		Use:   "create",
		Short: "批量生成邀请码",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(&cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			iamModule, err := setup.BuildIAMModule(db, cfg, pkgauth.NewPasswordManager(nil))
			if err != nil {
				return err
			}
			codes, err := iamModule.InviteCodeService.CreateInviteCodes(context.Background(), count, length)
			if err != nil {
				return err
			}

			table := pterm.TableData{{"#", "Code"}}
			for i, c := range codes {
				table = append(table, []string{fmt.Sprint(i + 1), c.Code})
			}
			if err := pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(table).Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}
			pterm.Success.Printfln("%d invite codes created", len(codes))
			return nil
		},
	}
	create.Flags().IntVarP(&count, "count", "n", 1, "生成数量")
	create.Flags().IntVarP(&length, "length", "l", 0, "邀请码长度 (默认: registration.invite_code_length)")
	cmd.AddCommand(create)
	return cmd
}
