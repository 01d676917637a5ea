package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/jamii/apps/portal"
	"github.com/trezcool/jamii/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errNoPassword = errors.New("no password provided")
)

type commandLine struct {
	app *portal.App
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Manage the " + cli.app.Conf.AppName + " session from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		cli.loginCmd(),
		cli.logoutCmd(),
		cli.whoamiCmd(),
		cli.resetPasswordCmd(),
		cli.notificationsCmd(),
		cli.rolesCmd(),
	)
	return root
}

func (cli *commandLine) run(ctx context.Context, args []string, out io.Writer) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func (cli *commandLine) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with an email; the password is prompted next",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Print("Enter password:")
			pwd, err := readPasswordFunc(int(syscall.Stdin))
			cmd.Println()
			if err != nil {
				return errors.Wrap(err, "reading password")
			}
			if len(pwd) == 0 {
				return errNoPassword
			}

			usr, err := cli.app.Session.Login(cmd.Context(), email, string(pwd))
			if err != nil {
				return err
			}
			cmd.Printf("Logged in as %s (%s dashboard)\n", usr.Email, usr.Family())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "The account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (cli *commandLine) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Run: func(cmd *cobra.Command, _ []string) {
			cli.app.Session.Logout(cmd.Context())
			cmd.Println("Logged out")
		},
	}
}

func (cli *commandLine) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		Run: func(cmd *cobra.Command, _ []string) {
			usr, ok := cli.app.Session.User()
			if !ok {
				cmd.Println("Not logged in")
				return
			}
			cmd.Printf("%s <%s>\n", usr.DisplayName, usr.Email)
			cmd.Printf("  id:     %s\n", usr.ID)
			cmd.Printf("  role:   %s\n", usr.Role)
			cmd.Printf("  roles:  %s\n", strings.Join(usr.Roles, ", "))
			cmd.Printf("  family: %s\n", usr.Family())
		},
	}
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email password reset instructions",
		Run: func(cmd *cobra.Command, _ []string) {
			cli.app.Session.ResetPassword(cmd.Context(), email)
			cmd.Println("If the address is registered, reset instructions are on their way")
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "The account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (cli *commandLine) notificationsCmd() *cobra.Command {
	var markRead bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List the session notifications, newest first",
		Run: func(cmd *cobra.Command, _ []string) {
			notes := cli.app.Notifications
			if markRead {
				notes.MarkAllAsRead()
			}
			snap := notes.Snapshot()
			cmd.Printf("%d unread\n", snap.UnreadCount)
			for _, n := range snap.Items {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				line := fmt.Sprintf("%s [%s] %s", mark, n.Kind, n.Title)
				if n.Link != "" {
					line += " -> " + n.Link
				}
				cmd.Println(line)
			}
		},
	}
	cmd.Flags().BoolVar(&markRead, "read", false, "Mark every notification as read first")
	return cmd
}

func (cli *commandLine) rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the known roles by dashboard family",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, family := range user.FamilyPriority {
				var names []string
				for _, role := range user.Roles {
					if role.Family == family {
						names = append(names, role.Value)
					}
				}
				cmd.Printf("%-9s %s\n", family.String()+":", strings.Join(names, ", "))
			}
		},
	}
}
