package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	u "github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	pv "github.com/and161185/gophpress/api/pressv1"
)

// ------- builders -------

// fieldFlags are the editable post fields as given on the command line.
type fieldFlags struct {
	title    string
	text     string
	file     string
	status   string
	image    string
	category string
	tags     []string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.title, "title", "t", "", "title")
	fl.StringVar(&f.text, "text", "", "body text")
	fl.StringVarP(&f.file, "file", "f", "", "read body from file ('-'=stdin)")
	fl.StringVar(&f.status, "status", "", "draft|published")
	fl.StringVar(&f.image, "image", "", "image URL")
	fl.StringVar(&f.category, "category", "", "category id (uuid)")
	fl.StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
}

// build validates the flags and packs them. Unset optional flags stay nil so edits keep stored values.
func (f *fieldFlags) build(cmd *cobra.Command) (pv.PostFields, error) {
	text := f.text
	if f.file != "" {
		if text != "" {
			return pv.PostFields{}, errors.New("use either --text or --file")
		}
		b, err := readAll(f.file)
		if err != nil {
			return pv.PostFields{}, err
		}
		text = string(b)
	}
	if strings.TrimSpace(f.title) == "" || strings.TrimSpace(text) == "" {
		return pv.PostFields{}, errors.New("need --title and --text or --file")
	}
	if f.status != "" && !validStatus(f.status) {
		return pv.PostFields{}, fmt.Errorf("bad --status %q: want draft or published", f.status)
	}
	out := pv.PostFields{Title: f.title, Text: text, Status: f.status}
	if cmd.Flags().Changed("image") {
		out.Image = &f.image
	}
	if f.category != "" {
		if _, err := u.FromString(f.category); err != nil {
			return pv.PostFields{}, fmt.Errorf("bad --category: %w", err)
		}
		out.Category = &f.category
	}
	if cmd.Flags().Changed("tag") {
		out.Tags = cleanTags(f.tags)
		if out.Tags == nil {
			out.Tags = []string{}
		}
	}
	return out, nil
}

func validStatus(s string) bool { return s == "draft" || s == "published" }

// cleanTags trims tags and drops empty or duplicate ones, keeping order.
func cleanTags(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func tsString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// printPosts writes one line per post.
func printPosts(w io.Writer, posts []pv.Post) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tAUTHOR\tEDITS\tCREATED\tTITLE")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, p.Status, p.Author.Name, len(p.Revisions), tsString(p.CreatedAt), p.Title)
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, revs []pv.Revision) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EDITED\tEDITOR\tEDITOR_ID")
	for _, r := range revs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", tsString(r.EditedAt), r.EditorName, r.EditorID)
	}
	_ = tw.Flush()
}

// ------- commands -------

func postCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "post", Short: "Create, read, edit and delete posts"}
	cmd.AddCommand(
		postCreateCmd(c),
		postGetCmd(c),
		postListCmd(c),
		postEditCmd(c),
		postRmCmd(c),
		postHistoryCmd(c),
	)
	return cmd
}

func postCreateCmd(c *cli) *cobra.Command {
	var ff fieldFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post (draft unless --status=published)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := ff.build(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.authed()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.CreatePost(ctx, &pv.CreatePostRequest{PostFields: fields})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.Post)
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func postEditCmd(c *cli) *cobra.Command {
	var ff fieldFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a post's content; you are recorded as editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := ff.build(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.authed()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.EditPost(ctx, &pv.EditPostRequest{ID: args[0], PostFields: fields})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.Post)
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func postGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one post with its edit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.client()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.GetPost(ctx, &pv.GetPostRequest{ID: args[0]})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.Post)
			return nil
		},
	}
}

func postListCmd(c *cli) *cobra.Command {
	var (
		all      bool
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published posts, all posts (--all) or one category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := &pv.ListPostsRequest{Category: category}
			open := c.client
			if all {
				req.Scope = pv.ScopeAll
				open = c.authed
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := open()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.ListPosts(ctx, req)
			if err != nil {
				return err
			}
			if asJSON {
				printJSON(cmd.OutOrStdout(), resp.Posts)
				return nil
			}
			printPosts(cmd.OutOrStdout(), resp.Posts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include drafts (login required)")
	cmd.Flags().StringVar(&category, "category", "", "category id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func postRmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.authed()
			if err != nil {
				return err
			}
			defer done()
			if _, err := cl.DeletePost(ctx, &pv.DeletePostRequest{ID: args[0]}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

func postHistoryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show who edited a post and when, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.client()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.PostHistory(ctx, &pv.PostHistoryRequest{ID: args[0]})
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), resp.Revisions)
			return nil
		},
	}
}
