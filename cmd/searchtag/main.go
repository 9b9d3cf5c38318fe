// Command searchtag decorates the hashtags in the search panels of a saved
// HTML page and prints the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hnimtadd/searchtag"
	"github.com/hnimtadd/searchtag/host"
	"github.com/hnimtadd/searchtag/host/memhost"
	"github.com/hnimtadd/searchtag/logger"
	"github.com/hnimtadd/searchtag/settings"
	"golang.org/x/net/html"
)

type options struct {
	settingsPath string
	watch        bool
	format       string
	strip        bool
	logLevel     string
	logJSON      bool
	input        string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logType := logger.TypeText
	if opts.logJSON {
		logType = logger.TypeJSON
	}
	l := logger.New(logger.Options{
		Buffer: os.Stderr,
		Level:  logger.ParseLevel(opts.logLevel),
		Type:   logType,
	})

	doc, err := readDocument(opts.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var store settings.Store
	if opts.settingsPath != "" {
		store = settings.NewFileStore(opts.settingsPath)
	}
	h := memhost.FromDocument(host.DefaultShape, doc)
	plugin, err := searchtag.Activate(searchtag.Options{Host: h, Store: store, Logger: l})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	h.Frame()

	if err := emit(os.Stdout, opts, h, plugin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !opts.watch || opts.settingsPath == "" {
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := watch(ctx, opts, h, plugin, l); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.settingsPath, "settings", "", "Path to a TOML settings file")
	flag.BoolVar(&opts.watch, "watch", false, "Re-render whenever the settings file changes (needs -settings)")
	flag.StringVar(&opts.format, "format", "html", "Output format (html, report)")
	flag.BoolVar(&opts.strip, "strip", false, "Remove all tag decoration instead of adding it")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.logJSON, "log-json", false, "Write logs as JSON")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: searchtag [options] [page.html]\n\n")
		fmt.Fprintf(os.Stderr, "Reads standard input when no page is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	switch opts.format {
	case "html", "report":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format %q\n", opts.format)
		os.Exit(2)
	}
	opts.input = flag.Arg(0)
	return opts
}

func readDocument(path string) (*html.Node, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening page: %w", err)
		}
		defer f.Close()
		r = f
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return doc, nil
}

func emit(w io.Writer, opts options, h *memhost.Host, p *searchtag.Plugin) error {
	if opts.strip {
		if err := p.Close(); err != nil && !errors.Is(err, searchtag.ErrClosed) {
			return err
		}
	}
	if opts.format == "report" {
		return writeReport(w, collectReport(h))
	}
	return html.Render(w, h.Document())
}

// watch re-applies the settings file on every change until ctx is done. The
// plugin is only touched from this goroutine.
func watch(ctx context.Context, opts options, h *memhost.Host, p *searchtag.Plugin, l logger.Logger) error {
	w, err := settings.NewWatcher(opts.settingsPath, l)
	if err != nil {
		return err
	}
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-w.Changes():
			if !ok {
				return nil
			}
			p.ApplySettings(s)
			h.Frame()
			if err := emit(os.Stdout, opts, h, p); err != nil {
				return err
			}
		}
	}
}
