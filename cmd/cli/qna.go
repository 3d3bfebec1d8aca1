package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/sm-portal/internal/errs"
	"github.com/and161185/sm-portal/internal/model"
	"github.com/and161185/sm-portal/internal/qna"
)

func newQnACmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "qna", Short: "Browse and post on the Q&A board"}
	cmd.AddCommand(
		newQnAListCmd(a),
		newQnASearchCmd(a),
		newQnAShowCmd(a),
		newQnAPostCmd(a),
		newQnAEditCmd(a),
		newQnARemoveCmd(a),
		newCommentsCmd(a),
		newCommentCmd(a),
		newCommentEditCmd(a),
		newCommentRemoveCmd(a),
	)
	return cmd
}

func newQnAListCmd(a *app) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.posts.List(cmd.Context(), page, size); err != nil {
				return err
			}
			printJSON(a.stdout, a.posts.Page())
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&size, "size", qna.DefaultPageSize, "page size")
	return cmd
}

func newQnASearchCmd(a *app) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "search KEYWORD",
		Short: "Search posts by title and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.posts.Search(cmd.Context(), args[0], page, size); err != nil {
				return err
			}
			printJSON(a.stdout, a.posts.Page())
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&size, "size", qna.DefaultSearchPageSize, "page size")
	return cmd
}

func newQnAShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			post, err := a.posts.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			comments, err := a.comments.Fetch(cmd.Context(), id)
			if err != nil {
				return err
			}
			printJSON(a.stdout, struct {
				model.Post
				Comments []model.Comment `json:"comments"`
			}{post, comments})
			return nil
		},
	}
}

type postFlags struct {
	author, pass, title, content, file string
}

func (f *postFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.author, "author", "", "author name")
	cmd.Flags().StringVarP(&f.pass, "password", "p", "", "post password (prompted when empty)")
	cmd.Flags().StringVar(&f.title, "title", "", "title")
	cmd.Flags().StringVar(&f.content, "content", "", "content")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read content from file, - for stdin")
}

func newQnAPostCmd(a *app) *cobra.Command {
	var f postFlags
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Write a new post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := a.text(f.content, f.file, "content")
			if err != nil {
				return err
			}
			pw, err := a.secret(f.pass, "Password")
			if err != nil {
				return err
			}
			p, err := a.posts.Create(cmd.Context(), model.PostDraft{
				AuthorName: f.author,
				Password:   pw,
				Title:      f.title,
				Content:    content,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, p.ID)
			return nil
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// ownerPassword asks for the password guarding a post or comment and
// verifies it before any mutation. An admin session skips both steps.
func (a *app) ownerPassword(ctx context.Context, flagVal string, check func(context.Context, model.Password) (bool, error)) (model.Password, error) {
	if a.session.IsActive() {
		return model.Password(flagVal), nil
	}
	pw, err := a.secret(flagVal, "Password")
	if err != nil {
		return "", err
	}
	ok, err := check(ctx, pw)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: password does not match", errs.ErrForbidden)
	}
	return pw, nil
}

func newQnAEditCmd(a *app) *cobra.Command {
	var f postFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pw, err := a.ownerPassword(ctx, f.pass, func(ctx context.Context, pw model.Password) (bool, error) {
				return a.posts.CheckPassword(ctx, id, pw)
			})
			if err != nil {
				return err
			}
			cur, err := a.posts.Get(ctx, id)
			if err != nil {
				return err
			}
			d := model.PostDraft{AuthorName: cur.AuthorName, Password: pw, Title: cur.Title, Content: cur.Content}
			if f.author != "" {
				d.AuthorName = f.author
			}
			if f.title != "" {
				d.Title = f.title
			}
			if f.content != "" || f.file != "" {
				if d.Content, err = a.text(f.content, f.file, "content"); err != nil {
					return err
				}
			}
			p, err := a.posts.Update(ctx, id, d)
			if err != nil {
				return err
			}
			printJSON(a.stdout, p)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newQnARemoveCmd(a *app) *cobra.Command {
	var pass string
	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pw, err := a.ownerPassword(cmd.Context(), pass, func(ctx context.Context, pw model.Password) (bool, error) {
				return a.posts.CheckPassword(ctx, id, pw)
			})
			if err != nil {
				return err
			}
			if err := a.posts.Delete(cmd.Context(), id, pw); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "deleted")
			return nil
		},
	}
	cmd.Flags().StringVarP(&pass, "password", "p", "", "post password (prompted when empty)")
	return cmd
}

func newCommentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comments POST_ID",
		Short: "List the comment tree of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.comments.Fetch(cmd.Context(), id); err != nil {
				return err
			}
			printJSON(a.stdout, a.comments.Thread().Comments)
			return nil
		},
	}
}

func newCommentCmd(a *app) *cobra.Command {
	var (
		author, pass, content string
		parent                int64
	)
	cmd := &cobra.Command{
		Use:   "comment POST_ID",
		Short: "Reply to a post or to another comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			d := model.CommentDraft{AuthorName: author, Content: content}
			if parent > 0 {
				d.ParentID = &parent
			}
			if !a.session.IsActive() {
				if d.Password, err = a.secret(pass, "Password"); err != nil {
					return err
				}
			}
			c, err := a.comments.Create(cmd.Context(), postID, d)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "author name")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "comment password (prompted when empty)")
	cmd.Flags().StringVar(&content, "content", "", "content")
	cmd.Flags().Int64Var(&parent, "parent", 0, "id of the comment being answered")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newCommentEditCmd(a *app) *cobra.Command {
	var pass, content string
	cmd := &cobra.Command{
		Use:   "comment-edit ID",
		Short: "Edit a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pw, err := a.ownerPassword(cmd.Context(), pass, func(ctx context.Context, pw model.Password) (bool, error) {
				return a.comments.CheckPassword(ctx, id, pw)
			})
			if err != nil {
				return err
			}
			c, err := a.comments.Update(cmd.Context(), id, pw, content)
			if err != nil {
				return err
			}
			printJSON(a.stdout, c)
			return nil
		},
	}
	cmd.Flags().StringVarP(&pass, "password", "p", "", "comment password (prompted when empty)")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newCommentRemoveCmd(a *app) *cobra.Command {
	var pass string
	cmd := &cobra.Command{
		Use:   "comment-rm ID",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pw, err := a.ownerPassword(cmd.Context(), pass, func(ctx context.Context, pw model.Password) (bool, error) {
				return a.comments.CheckPassword(ctx, id, pw)
			})
			if err != nil {
				return err
			}
			if err := a.comments.Delete(cmd.Context(), id, pw); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "deleted")
			return nil
		},
	}
	cmd.Flags().StringVarP(&pass, "password", "p", "", "comment password (prompted when empty)")
	return cmd
}
