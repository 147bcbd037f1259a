package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Inspect roles, permissions and user profiles (admin)",
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles and their permissions",
	Args:  cobra.NoArgs,
	RunE:  runRolesList,
}

var rolesUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List user profiles and their roles",
	Args:  cobra.NoArgs,
	RunE:  runRolesUsers,
}

var rolesActivateCmd = &cobra.Command{
	Use:   "activate <profile-id> <role-id>",
	Short: "Approve a pending user and assign a role",
	Args:  cobra.ExactArgs(2),
	RunE:  runRolesActivate,
}

func init() {
	rolesCmd.AddCommand(rolesListCmd)
	rolesCmd.AddCommand(rolesUsersCmd)
	rolesCmd.AddCommand(rolesActivateCmd)
}

func runRolesList(cmd *cobra.Command, args []string) error {
	roles, err := apiClient.ListRoles(cmd.Context())
	if err != nil {
		return err
	}
	if structured() {
		return printStructured(os.Stdout, roles)
	}
	if len(roles) == 0 {
		fmt.Println("No roles found.")
		return nil
	}

	fmt.Printf("%-5s %-12s %s\n", "ID", "ROLE", "PERMISSIONS")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, r := range roles {
		names := lo.Map(r.Permissions, func(p models.Permission, _ int) string { return p.Name })
		fmt.Printf("%-5d %-12s %s\n", r.ID, r.Name, orDash(strings.Join(names, ", ")))
	}
	return nil
}

func runRolesUsers(cmd *cobra.Command, args []string) error {
	profiles, err := apiClient.ListProfiles(cmd.Context())
	if err != nil {
		return err
	}
	if structured() {
		return printStructured(os.Stdout, profiles)
	}
	if len(profiles) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	fmt.Printf("%-36s %-32s %-10s %s\n", "ID", "EMAIL", "ROLE", "STATUS")
	fmt.Println("----------------------------------------------------------------------------------------------")
	for _, p := range profiles {
		status := "pending"
		if p.IsActive {
			status = "active"
		}
		fmt.Printf("%-36s %-32s %-10s %s\n", p.ID, truncate(p.Email, 32), orDash(p.RoleName), status)
	}
	return nil
}

func runRolesActivate(cmd *cobra.Command, args []string) error {
	var roleID int64
	if _, err := fmt.Sscan(args[1], &roleID); err != nil || roleID <= 0 {
		return fmt.Errorf("invalid role id %q", args[1])
	}
	active := true

	profile, err := apiClient.UpdateProfile(cmd.Context(), args[0], models.ProfileUpdate{RoleID: &roleID, IsActive: &active})
	if err != nil {
		return err
	}
	if structured() {
		return printStructured(os.Stdout, profile)
	}
	fmt.Printf("Activated %s as %s\n", profile.Email, orDash(profile.RoleName))
	return nil
}
