package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"drravalement/site/internal/authctx"
	"drravalement/site/internal/gate"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with an admin account. The password is read from
--password, from DRRAV_ADMIN_PASSWORD or from standard input.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user and its permissions",
	RunE:  gated(gate.Requirement{}, runWhoami),
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List your active sessions",
	RunE:  gated(gate.Requirement{}, runSessions),
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, sessionsCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("DRRAV_ADMIN_PASSWORD")
	}
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	st, err := a.auth.Login(cmd.Context(), authctx.Credentials{Email: email, Password: password})
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{"user": st.User, "expiresAt": st.Session.ExpiresAt})
	}
	fmt.Printf("Signed in as %s (%s), session expires %s\n",
		st.User.Email, st.User.Role, st.Session.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	a.auth.Restore(cmd.Context())
	a.auth.Logout(cmd.Context())
	fmt.Println("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string, a *app) error {
	me, err := a.client.Me(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(me)
	}
	fmt.Printf("%s <%s>\nrole:   %s\nstatus: %s\n", deref(me.Name), me.Email, me.Role, me.Status)
	fmt.Printf("permissions: %s\n", strings.Join(me.Permissions, ", "))
	return nil
}

func runSessions(cmd *cobra.Command, _ []string, a *app) error {
	sessions, err := a.client.ListSessions(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"sessions": sessions, "count": len(sessions)})
	}

	w := newTable()
	printTableHeader(w, "ID", "CREATED", "LAST USED", "EXPIRES", "IP", "")
	for _, s := range sessions {
		marker := ""
		if s.Current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.CreatedAt.Local().Format(time.DateTime),
			s.LastUsed.Local().Format(time.DateTime),
			s.ExpiresAt.Local().Format(time.DateTime),
			deref(s.IPAddress),
			marker,
		)
	}
	return w.Flush()
}
