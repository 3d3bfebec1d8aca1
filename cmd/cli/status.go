package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/sm-portal/internal/model"
	"github.com/and161185/sm-portal/internal/qna"
	"github.com/and161185/sm-portal/internal/reference"
)

type statusReport struct {
	LoggedIn   bool   `json:"logged_in"`
	AdminName  string `json:"admin_name,omitempty"`
	Posts      int    `json:"posts"`
	References int    `json:"references"`
	Categories int    `json:"categories"`
}

// newStatusCmd loads the first page of every listing concurrently and
// prints a summary.
func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarise the session and the site contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				sess model.Session
				rep  statusReport
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				sess = a.session.Check(ctx)
				return nil
			})
			g.Go(func() error {
				p, err := a.posts.List(ctx, 0, qna.DefaultPageSize)
				rep.Posts = p.TotalElements
				return err
			})
			g.Go(func() error {
				p, err := a.refs.List(ctx, 0, reference.DefaultPageSize)
				rep.References = p.TotalElements
				return err
			})
			g.Go(func() error {
				c, err := a.refs.Categories(ctx)
				rep.Categories = len(c)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			rep.LoggedIn, rep.AdminName = sess.LoggedIn, sess.AdminName
			printJSON(a.stdout, rep)
			return nil
		},
	}
}
