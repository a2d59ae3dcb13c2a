package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"drravalement/site/internal/api"
	"drravalement/site/internal/authz"
	"drravalement/site/internal/gate"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage back office accounts",
	Long: `User management commands.

Examples:
  adminctl users list
  adminctl users create editor@drravalement.fr --role editor --name "Claire"
  adminctl users role <id> viewer
  adminctl users status <id> inactive
  adminctl users delete <id>`,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE:  gated(gate.RequirePermission(authz.UsersRead), runUsersList),
}

var usersCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE:  gated(gate.RequirePermission(authz.UsersWrite), runUsersCreate),
}

var usersRoleCmd = &cobra.Command{
	Use:   "role <id> <admin|editor|viewer>",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(2),
	RunE:  gated(gate.RequirePermission(authz.UsersWrite), runUsersRole),
}

var usersStatusCmd = &cobra.Command{
	Use:   "status <id> <active|inactive|pending>",
	Short: "Change a user's status",
	Long: `Change a user's status. Moving a user out of active signs out
all of that user's sessions.`,
	Args: cobra.ExactArgs(2),
	RunE: gated(gate.RequirePermission(authz.UsersWrite), runUsersStatus),
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user and its sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  gated(gate.RequirePermission(authz.UsersDelete), runUsersDelete),
}

func init() {
	usersListCmd.Flags().Int("page", 1, "page number")
	usersListCmd.Flags().Int("per-page", 50, "page size (max 200)")

	usersCreateCmd.Flags().String("password", "", "initial password (min 10 characters)")
	usersCreateCmd.Flags().String("name", "", "display name")
	usersCreateCmd.Flags().String("role", "viewer", "role (admin, editor, viewer)")
	_ = usersCreateCmd.MarkFlagRequired("password")

	usersCmd.AddCommand(usersListCmd, usersCreateCmd, usersRoleCmd, usersStatusCmd, usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersList(cmd *cobra.Command, _ []string, a *app) error {
	page, _ := cmd.Flags().GetInt("page")
	perPage, _ := cmd.Flags().GetInt("per-page")

	users, err := a.client.ListUsers(cmd.Context(), page, perPage)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(users)
	}
	if len(users.Items) == 0 {
		fmt.Println("No users found")
		return nil
	}

	w := newTable()
	printTableHeader(w, "ID", "EMAIL", "NAME", "ROLE", "STATUS", "LAST LOGIN")
	for _, u := range users.Items {
		last := "never"
		if u.LastLogin != nil {
			last = u.LastLogin.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, deref(u.Name), u.Role, u.Status, last)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d of %d users\n", len(users.Items), users.Total)
	return nil
}

func runUsersCreate(cmd *cobra.Command, args []string, a *app) error {
	password, _ := cmd.Flags().GetString("password")
	name, _ := cmd.Flags().GetString("name")
	role, _ := cmd.Flags().GetString("role")

	user, err := a.client.CreateUser(cmd.Context(), api.CreateUserRequest{
		Email:    args[0],
		Password: password,
		Name:     name,
		Role:     role,
	})
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(user)
	}
	fmt.Printf("Created %s (%s) with id %s\n", user.Email, user.Role, user.ID)
	return nil
}

func runUsersRole(cmd *cobra.Command, args []string, a *app) error {
	if err := a.client.UpdateUserRole(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("User %s is now %s\n", args[0], args[1])
	return nil
}

func runUsersStatus(cmd *cobra.Command, args []string, a *app) error {
	if err := a.client.UpdateUserStatus(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("User %s is now %s\n", args[0], args[1])
	return nil
}

func runUsersDelete(cmd *cobra.Command, args []string, a *app) error {
	if err := a.client.DeleteUser(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("User %s deleted\n", args[0])
	return nil
}
