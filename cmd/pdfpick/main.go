// Package main は PDF のページを選んで抽出APIへ送信するコマンドラインクライアントです。
//
//	pdfpick [-server URL] [-pages 3,1] [-o out.pdf] file.pdf
//	pdfpick [-server URL] [-o out.pdf] -fetch modified_<ms>-<id>.pdf
//
// -pages を省略すると対話モードになり、ページ番号で選択を切り替え、s で送信、q で終了します。
// -fetch はサーバーに保存済みのファイルを取得します。
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yourusername/pdf-extractor/internal/logging"
	"github.com/yourusername/pdf-extractor/internal/pdf"
	"github.com/yourusername/pdf-extractor/internal/selector"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "pdfpick:", err)
		}
		os.Exit(1)
	}
}

type printNotifier struct {
	out io.Writer
	err io.Writer
}

func (n printNotifier) Success(msg string) { fmt.Fprintln(n.out, msg) }
func (n printNotifier) Failure(msg string) { fmt.Fprintln(n.err, msg) }

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pdfpick", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", envOr("PDFPICK_SERVER", "http://localhost:8080"), "extractor API base URL")
	pagesFlag := fs.String("pages", "", "comma separated pages to extract, in order (e.g. 3,1)")
	output := fs.String("o", "", "output path (default: server provided name in the current directory)")
	maxSize := fs.Int64("max-size", selector.DefaultMaxSize, "client side file size limit in bytes")
	fetch := fs.String("fetch", "", "download a stored file by name instead of uploading")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pdfpick [-server URL] [-pages 3,1] [-o out.pdf] file.pdf")
		fmt.Fprintln(stderr, "       pdfpick [-server URL] [-o out.pdf] -fetch NAME")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.Console(*verbose)
	client, err := selector.NewClient(*server, nil)
	if err != nil {
		return err
	}
	saver := selector.FileSaver{Path: *output, Dir: "."}

	if *fetch != "" {
		return fetchStored(ctx, client, saver, *fetch, stdout, logger)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one PDF file is required")
	}
	loader := selector.NewLoader(pdf.NewEngine())
	loader.MaxSize = *maxSize

	session := selector.NewSession(
		loader,
		client,
		saver,
		printNotifier{out: stdout, err: stderr},
		logger,
	)
	if err := session.LoadFile(ctx, fs.Arg(0)); err != nil {
		return err
	}

	if *pagesFlag != "" {
		pages, err := parsePages(*pagesFlag)
		if err != nil {
			return err
		}
		for _, p := range pages {
			if err := session.Toggle(p, true); err != nil {
				return err
			}
		}
		path, err := session.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
		return nil
	}

	return interactive(ctx, session, stdin, stdout, logger)
}

func fetchStored(ctx context.Context, client *selector.Client, saver selector.Saver, name string, stdout io.Writer, logger zerolog.Logger) error {
	dl, err := client.Fetch(ctx, name)
	if err != nil {
		return err
	}
	path, err := saver.Save(dl)
	if err != nil {
		return err
	}
	logger.Debug().Str("name", name).Str("path", path).Int("bytes", len(dl.Data)).Msg("stored file fetched")
	fmt.Fprintln(stdout, path)
	return nil
}

func interactive(ctx context.Context, session *selector.Session, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) error {
	scanner := bufio.NewScanner(stdin)
	for {
		if err := selector.Render(stdout, session.State()); err != nil {
			return err
		}
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "":
			continue
		case "q":
			return nil
		case "s":
			path, err := session.Submit(ctx)
			switch {
			case errors.Is(err, selector.ErrEmptySelection):
				continue
			case err != nil:
				return err
			}
			fmt.Fprintln(stdout, path)
			return nil
		}

		page, err := strconv.Atoi(cmd)
		if err != nil {
			fmt.Fprintf(stdout, "unknown command %q (page number, s or q)\n", cmd)
			continue
		}
		state := session.State()
		if err := session.Toggle(page, !state.Selected(page)); err != nil {
			logger.Debug().Err(err).Int("page", page).Msg("toggle refused")
			fmt.Fprintln(stdout, err)
		}
	}
}

func parsePages(raw string) ([]int, error) {
	var pages []int
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("invalid page %q", token)
		}
		pages = append(pages, n)
	}
	if len(pages) == 0 {
		return nil, selector.ErrEmptySelection
	}
	return pages, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
