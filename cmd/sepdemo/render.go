package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sepdemo/internal/storage"
	"sepdemo/internal/view"
	"sepdemo/web"
)

func newRenderCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the results page to a static file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Keep stdout clean when the page itself goes there.
			logOut := io.Writer(os.Stdout)
			if out == "-" {
				logOut = os.Stderr
			}
			a, err := setup(logOut)
			if err != nil {
				return err
			}
			defer a.close()
			return a.render(cmd.Context(), out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "index.html", `output file ("-" for stdout)`)
	return cmd
}

func (a *app) render(ctx context.Context, out string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if out == "-" {
		w := bufio.NewWriter(os.Stdout)
		rec, err := a.renderer.Render(ctx, w, "cli")
		if err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		return renderStatus(rec)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	rec, err := a.renderer.Render(ctx, f, "cli")
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	if err != nil {
		return err
	}

	if err := writeStylesheet(filepath.Dir(out)); err != nil {
		return err
	}
	a.logger.Info("page written", "path", out, "bytes", rec.Bytes)
	return renderStatus(rec)
}

// writeStylesheet places the embedded stylesheet where the page links it.
func writeStylesheet(dir string) error {
	static, err := web.Static()
	if err != nil {
		return err
	}
	src, err := static.Open("style.css")
	if err != nil {
		return fmt.Errorf("open stylesheet: %w", err)
	}
	defer src.Close()

	dst := filepath.Join(dir, filepath.FromSlash(view.Stylesheet))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create stylesheet dir: %w", err)
	}
	return copyFile(dst, src)
}

func copyFile(dst string, src fs.File) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return f.Close()
}

// renderStatus turns a page that only shows the error block into a
// non-zero exit.
func renderStatus(rec *storage.Render) error {
	if rec.Status != storage.StatusSuccess {
		return fmt.Errorf("page rendered with %s: %s", rec.Status, rec.Error)
	}
	return nil
}
