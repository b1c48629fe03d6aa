package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"zyllen/pkg/client"

	"github.com/spf13/cobra"
)

// rolesCmd represents the roles command
var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Inspect and manage role permissions through the API",
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles and their permission codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		roles, err := c.ListRoles(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSYSTEM\tPERMISSIONS")
		for _, r := range roles {
			codes := make([]string, 0, len(r.Permissions))
			for _, p := range r.Permissions {
				codes = append(codes, p.Code)
			}
			sort.Strings(codes)
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", r.ID, r.Name, r.IsSystem, strings.Join(codes, ","))
		}
		return w.Flush()
	},
}

var rolesGrantCmd = &cobra.Command{
	Use:   "grant <role-id> [code...]",
	Short: "Replace a role's permissions with exactly the given codes",
	Long: `Replace a role's permissions with exactly the given screen.action codes.

Codes not listed are revoked. With no codes the role loses every permission.

Example:
  zyllenctl roles grant 6f1c... inventory.view inventory.bipar_entrada tickets.view`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		catalog, err := c.ListPermissions(cmd.Context())
		if err != nil {
			return err
		}
		ids, err := permissionIDs(catalog, args[1:])
		if err != nil {
			return err
		}

		res, err := c.ReplaceRolePermissions(cmd.Context(), args[0], ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "role %s: %d permission(s), %d added, %d removed\n",
			res.RoleID, len(res.PermissionIDs), len(res.Added), len(res.Removed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
	rolesCmd.AddCommand(rolesListCmd, rolesGrantCmd)

	flags := rolesCmd.PersistentFlags()
	flags.String("server", envOr("ZYLLEN_URL", "http://localhost:8080"), "API base URL")
	flags.String("email", os.Getenv("ZYLLEN_EMAIL"), "Login e-mail")
	flags.String("password", os.Getenv("ZYLLEN_PASSWORD"), "Login password")
}

func apiClient(cmd *cobra.Command) (*client.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" || password == "" {
		return nil, fmt.Errorf("--email and --password (or ZYLLEN_EMAIL / ZYLLEN_PASSWORD) are required")
	}

	c := client.New(server)
	if _, err := c.Login(cmd.Context(), email, password); err != nil {
		return nil, err
	}
	return c, nil
}

// permissionIDs maps screen.action codes onto catalog ids, rejecting unknown codes
func permissionIDs(catalog []client.Permission, codes []string) ([]string, error) {
	byCode := make(map[string]string, len(catalog))
	for _, p := range catalog {
		byCode[p.Code] = p.ID
	}

	seen := make(map[string]bool, len(codes))
	ids := make([]string, 0, len(codes))
	var unknown []string
	for _, code := range codes {
		id, ok := byCode[code]
		if !ok {
			unknown = append(unknown, code)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown permission code(s): %s", strings.Join(unknown, ", "))
	}
	return ids, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
