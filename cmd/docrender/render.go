package main

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/pkg/document"
	"github.com/vango-dev/docrender/pkg/request"
)

// pageFlags select one page outside of HTTP.
type pageFlags struct {
	template string
	file     string
	option   string
	task     string
	message  string
	language string
	title    string
	itemID   int
	access   int
	admin    bool
	output   string
}

func (p *pageFlags) request() *request.Request {
	req := &request.Request{
		ID:          uuid.NewString(),
		AccessLevel: p.access,
		Option:      p.option,
		Task:        p.task,
		Message:     p.message,
		Language:    p.language,
	}
	if p.itemID > 0 {
		req.MenuID = p.itemID
		req.HasMenu = true
	}
	if p.admin {
		req.Client = request.ClientAdmin
	}
	return req
}

func renderCmd(g *globals) *cobra.Command {
	p := &pageFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one page to stdout or a file",
		Long: `Render one page without starting a server.

Examples:
  docrender render
  docrender render --option=content --itemid=3
  docrender render --template=rhuk --file=component.html -o page.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if p.template == "" {
				p.template = cfg.Templates.Default
			}
			if p.file == "" {
				p.file = cfg.Templates.File
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if cfg.Server.RenderTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Server.RenderTimeout)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			if p.output != "" {
				f, err := os.Create(p.output)
				if err != nil {
					return errors.New("C110").WithDetail(p.output).Wrap(err)
				}
				defer f.Close()
				out = f
			}

			if err := renderPage(ctx, a.opts, p, out); err != nil {
				return err
			}
			if p.output != "" {
				success(cmd.ErrOrStderr(), "Wrote %s", p.output)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&p.template, "template", "t", "", "Page template (default from templates.default)")
	f.StringVarP(&p.file, "file", "f", "", "Page file (default from templates.file)")
	f.StringVar(&p.option, "option", "", "Component for the main area")
	f.StringVar(&p.task, "task", "", "Task passed to the component")
	f.StringVar(&p.message, "msg", "", "Notice shown above the component")
	f.StringVar(&p.language, "lang", "", "Page language")
	f.StringVar(&p.title, "title", "", "Page title")
	f.IntVar(&p.itemID, "itemid", 0, "Active menu item")
	f.IntVar(&p.access, "access", 0, "Viewer access level")
	f.BoolVar(&p.admin, "admin", false, "Render in the administrator client")
	f.StringVarP(&p.output, "output", "o", "", "Write the page to a file")

	return cmd
}

func renderPage(ctx context.Context, opts document.Options, p *pageFlags, w io.Writer) error {
	h, err := document.NewHTML(ctx, opts, p.request())
	if err != nil {
		return err
	}
	if p.title != "" {
		h.SetTitle(p.title)
	}
	page, err := h.Render(ctx, p.template, p.file)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, page)
	return err
}
