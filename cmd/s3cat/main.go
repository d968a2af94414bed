// Command s3cat streams URL contents to stdout.
//
//	s3cat s3://bucket/key file:///etc/hosts
//	s3cat --head s3://bucket/key
//	s3cat --decode --if-modified-since 2026-01-02T15:04:05Z s3://bucket/data.json.gz
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/spf13/cobra"

	s3client "github.com/pithecene-io/s3url/internal/s3"
	"github.com/pithecene-io/s3url/urlconn"
	"github.com/pithecene-io/s3url/urlconn/s3"
)

type options struct {
	head            bool
	decode          bool
	ifModifiedSince string
	configPath      string
	verbose         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "s3cat [flags] URL...",
		Short: "Print the contents or metadata of URL-addressed objects",
		Long: `s3cat opens each URL through the registered handlers and copies its
contents to stdout. s3:// and file:// URLs are supported.

S3 access is configured by S3URL_CONFIG (a YAML file), S3URL_* environment
overrides, and the AWS default credential chain.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), stdout, stderr, opts, args)
			if err != nil {
				fmt.Fprintf(stderr, "s3cat: %v\n", err)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.head, "head", false, "print metadata as JSON instead of contents")
	flags.BoolVar(&opts.decode, "decode", false, "remove Content-Encoding (gzip, zstd) while streaming")
	flags.StringVar(&opts.ifModifiedSince, "if-modified-since", "", "only fetch objects modified after this RFC 3339 time")
	flags.StringVar(&opts.configPath, "config", "", "S3 client config file (overrides "+s3client.EnvConfig+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(ctx context.Context, stdout, stderr io.Writer, opts options, args []string) error {
	log := log15.New()
	lvl := log15.LvlInfo
	if opts.verbose {
		lvl = log15.LvlDebug
	}
	log.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(stderr, log15.TerminalFormat())))

	var since time.Time
	if opts.ifModifiedSince != "" {
		t, err := time.Parse(time.RFC3339, opts.ifModifiedSince)
		if err != nil {
			return fmt.Errorf("invalid --if-modified-since: %w", err)
		}
		since = t
	}

	if opts.configPath != "" {
		if err := os.Setenv(s3client.EnvConfig, opts.configPath); err != nil {
			return err
		}
	}
	s3.DefaultHandler().Logger = log
	if err := s3.Register(); err != nil {
		return err
	}

	for _, raw := range args {
		if err := catOne(ctx, stdout, log, opts, since, raw); err != nil {
			if errors.Is(err, urlconn.ErrNotModified) {
				log.Debug("not modified", "url", raw)
				continue
			}
			return err
		}
	}
	return nil
}

func catOne(ctx context.Context, stdout io.Writer, log log15.Logger, opts options, since time.Time, raw string) error {
	conn, err := urlconn.Open(ctx, raw)
	if err != nil {
		return err
	}
	if err := conn.SetIfModifiedSince(since); err != nil {
		return err
	}

	if opts.head {
		if err := conn.SetDoInput(false); err != nil {
			return err
		}
		if err := conn.Connect(ctx); err != nil {
			return err
		}
		return writeMetadata(stdout, conn)
	}

	var body io.ReadCloser
	if opts.decode {
		body, err = urlconn.DecodedBody(ctx, conn)
	} else {
		body, err = conn.Body(ctx)
	}
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	n, err := io.Copy(stdout, body)
	if err != nil {
		return fmt.Errorf("copy %s: %w", raw, err)
	}
	log.Debug("copied", "url", raw, "bytes", n)
	return nil
}
