package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"raggate/internal/app/gateway/setup"
	"raggate/internal/model"
	pkgauth "raggate/internal/pkg/auth"
	"raggate/internal/pkg/database"
)

// permissionFile permissions.yaml 结构
//
//	roles:
//	  user:
//	    permissions: [dataset:read]
type permissionFile struct {
	Roles map[string]struct {
		Permissions []string `yaml:"permissions"`
	} `yaml:"roles"`
}

// loadPermissionFile 读取角色权限映射，系统角色 user/admin 总会出现在结果中
func loadPermissionFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var file permissionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	mapping := map[string][]string{model.RoleUser: nil, model.RoleAdmin: nil}
	for role, entry := range file.Roles {
		role = strings.TrimSpace(role)
		if role == "" {
			return nil, fmt.Errorf("parse %s: empty role name", path)
		}
		for _, p := range entry.Permissions {
			if p = strings.TrimSpace(p); p != "" {
				mapping[role] = append(mapping[role], p)
			}
		}
	}
	return mapping, nil
}

func newInitPermsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "init-perms",
		Short: "按 permissions.yaml 初始化角色与权限",
		Long:  "角色与权限不存在时创建，并补齐缺失的角色-权限关联，已有关联不会被删除。全部变更在一个事务内完成。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = filepath.Join(cfg.App.ConfigDir, "permissions.yaml")
			}
			mapping, err := loadPermissionFile(file)
			if err != nil {
				return err
			}

			db, err := database.Open(&cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			iamModule, err := setup.BuildIAMModule(db, cfg, pkgauth.NewPasswordManager(nil))
			if err != nil {
				return err
			}
			added, err := iamModule.RoleService.EnsureRolePermissions(context.Background(), mapping)
			if err != nil {
				return err
			}

			roles := make([]string, 0, len(mapping))
			for role := range mapping {
				roles = append(roles, role)
			}
			sort.Strings(roles)
			table := pterm.TableData{{"Role", "Permissions"}}
			for _, role := range roles {
				table = append(table, []string{role, strings.Join(mapping[role], ", ")})
			}
			if err := pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(table).Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}
			pterm.Success.Printfln("%d role-permission links added from %s", added, file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "权限文件路径 (默认: <config>/permissions.yaml)")
	return cmd
}
