package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/sm-portal/internal/model"
)

func newLoginCmd(a *app) *cobra.Command {
	var user, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as an administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.secret(pass, "Password")
			if err != nil {
				return err
			}
			res, err := a.session.Login(cmd.Context(), user, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "logged in as %s\n", res.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "username", "u", "", "username")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Ask the server who is logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.session.Check(cmd.Context())
			if !s.LoggedIn {
				fmt.Fprintln(a.stdout, "not logged in")
				return nil
			}
			fmt.Fprintln(a.stdout, s.AdminName)
			return nil
		},
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	var current, next string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the admin password and log out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := a.secret(current, "Current password")
			if err != nil {
				return err
			}
			nw, err := a.secret(next, "New password")
			if err != nil {
				return err
			}
			if err := a.session.ChangePassword(cmd.Context(), cur, nw); err != nil {
				return err
			}
			// the new password takes effect on the next login
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "password changed; log in again")
			return nil
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change the admin display name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.UpdateProfile(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "display name is now %s\n", a.session.Snapshot().AdminName)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAdminsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "admins", Short: "Manage administrator accounts"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List administrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			admins, err := a.session.ListAdmins(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(a.stdout, admins)
			return nil
		},
	}

	var d struct{ user, pass, name string }
	add := &cobra.Command{
		Use:   "add",
		Short: "Register an administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.secret(d.pass, "Password")
			if err != nil {
				return err
			}
			id, err := a.session.RegisterAdmin(cmd.Context(), model.AdminDraft{Username: d.user, Password: pw, Name: d.name})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, id)
			return nil
		},
	}
	add.Flags().StringVarP(&d.user, "username", "u", "", "username")
	add.Flags().StringVarP(&d.pass, "password", "p", "", "password (prompted when empty)")
	add.Flags().StringVar(&d.name, "name", "", "display name")
	_ = add.MarkFlagRequired("username")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete an administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.session.DeleteAdmin(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "deleted")
			return nil
		},
	}

	cmd.AddCommand(list, add, rm)
	return cmd
}
