package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/and161185/sm-portal/internal/model"
	"github.com/and161185/sm-portal/internal/reference"
)

func newRefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "refs", Short: "Browse and manage the reference library"}

	var (
		page, size int
		category   int64
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List references, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if category > 0 {
				_, err = a.refs.ListByCategory(cmd.Context(), category, page, size)
			} else {
				_, err = a.refs.List(cmd.Context(), page, size)
			}
			if err != nil {
				return err
			}
			printJSON(a.stdout, a.refs.Page())
			return nil
		},
	}
	list.Flags().Int64Var(&category, "category", 0, "only this category")
	list.Flags().IntVar(&page, "page", 0, "zero-based page")
	list.Flags().IntVar(&size, "size", reference.DefaultPageSize, "page size")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := a.refs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printJSON(a.stdout, r)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.refs.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "deleted")
			return nil
		},
	}

	url := &cobra.Command{
		Use:   "url ID",
		Short: "Print the download link of a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, a.refs.DownloadURL(id))
			return nil
		},
	}

	cmd.AddCommand(list, show, newRefsAddCmd(a), rm, url, newRefsDownloadCmd(a))
	return cmd
}

func newRefsAddCmd(a *app) *cobra.Command {
	var (
		category          int64
		title, desc, thumb string
	)
	cmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Upload a new reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			u := reference.Upload{
				CategoryID:  category,
				Title:       title,
				Description: desc,
				File:        reference.File{Name: filepath.Base(args[0]), Content: f},
			}
			if thumb != "" {
				tf, err := os.Open(thumb)
				if err != nil {
					return err
				}
				defer tf.Close()
				u.Thumbnail = &reference.File{Name: filepath.Base(thumb), Content: tf}
			}
			r, err := a.refs.Create(cmd.Context(), u)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, r.ID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&category, "category", 0, "category id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "desc", "", "description")
	cmd.Flags().StringVar(&thumb, "thumb", "", "thumbnail image")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newRefsDownloadCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download ID",
		Short: "Download the file of a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			dir := "."
			if out != "" {
				dir = filepath.Dir(out)
			}
			tmp, err := os.CreateTemp(dir, ".smportal-*")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())

			bar := progressbar.NewOptions64(-1,
				progressbar.OptionSetWriter(a.stderr),
				progressbar.OptionShowBytes(true),
				progressbar.OptionSetDescription(fmt.Sprintf("reference %d", id)),
				progressbar.OptionClearOnFinish(),
			)
			name, n, err := a.refs.Download(cmd.Context(), id, tmp, func(written, total int64) {
				if total > 0 && bar.GetMax64() != total {
					bar.ChangeMax64(total)
				}
				_ = bar.Set64(written)
			})
			_ = bar.Finish()
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			dst := out
			if dst == "" {
				dst = safeName(name, id)
			}
			if err := os.Rename(tmp.Name(), dst); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s (%d bytes)\n", dst, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (defaults to the server's file name)")
	return cmd
}

// safeName keeps only the last element of a server-provided file name.
func safeName(name string, id int64) string {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return fmt.Sprintf("reference-%d", id)
	}
	return name
}

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "categories", Short: "Manage reference categories"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.refs.Categories(cmd.Context()); err != nil {
				return err
			}
			printJSON(a.stdout, a.refs.CachedCategories())
			return nil
		},
	}

	var order int
	draft := func(cmd *cobra.Command, name string) model.CategoryDraft {
		d := model.CategoryDraft{Name: name}
		if cmd.Flags().Changed("order") {
			d.SortOrder = &order
		}
		return d
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.refs.CreateCategory(cmd.Context(), draft(cmd, args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, c.ID)
			return nil
		},
	}
	add.Flags().IntVar(&order, "order", 0, "sort order")

	edit := &cobra.Command{
		Use:   "edit ID NAME",
		Short: "Rename or reorder a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.refs.UpdateCategory(cmd.Context(), id, draft(cmd, args[1]))
			if err != nil {
				return err
			}
			printJSON(a.stdout, c)
			return nil
		},
	}
	edit.Flags().IntVar(&order, "order", 0, "sort order")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete an empty category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.refs.DeleteCategory(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "deleted")
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, rm)
	return cmd
}
