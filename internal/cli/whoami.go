package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user, role and permissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := apiClient.Me(cmd.Context())
		if err != nil {
			return err
		}
		if structured() {
			return printStructured(os.Stdout, me)
		}

		fmt.Printf("User:        %s\n", orDash(me.Profile.Email))
		fmt.Printf("Role:        %s\n", orDash(me.Role))
		if !me.Profile.IsActive {
			fmt.Println("Status:      pending approval")
		}
		fmt.Printf("Permissions: %s\n", orDash(strings.Join(me.Permissions, ", ")))
		return nil
	},
}
