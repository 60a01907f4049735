package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/postfeed/internal/feed"
	"github.com/rickgao/postfeed/internal/metrics"
	"github.com/rickgao/postfeed/internal/version"
)

type watchFlags struct {
	verbose    bool
	retryAfter time.Duration
	noServer   bool
}

func newWatchCmd(root *rootFlags) *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to the feed and print new posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), root, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "print full event payloads")
	cmd.Flags().DurationVar(&flags.retryAfter, "retry-after", 30*time.Second, "wait before connecting again after a failed connect (0 exits instead)")
	cmd.Flags().BoolVar(&flags.noServer, "no-server", false, "do not serve /health and metrics")

	return cmd
}

func runWatch(ctx context.Context, out io.Writer, root *rootFlags, flags *watchFlags) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	build := version.Get()
	logger.Info("starting feedwatch",
		"version", build.Version,
		"commit", build.Commit,
		"host_context", cfg.Endpoint.HostContext,
		"socket_url", cfg.Endpoint.SocketBase(),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	feed.Configure(cfg, feed.WithLogger(logger), feed.WithMetrics(metrics.New(reg)))
	client := feed.Default()

	printer := &eventPrinter{out: out, verbose: flags.verbose}
	client.Subscribe(feed.EventNewPost, feed.NewListener(printer.newPost))
	client.Subscribe(feed.EventNewPosts, feed.NewListener(printer.newPosts))

	g, gctx := errgroup.WithContext(ctx)

	if !flags.noServer {
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: createHealthHandler(client, reg, cfg.Metrics.Path),
		}

		g.Go(func() error {
			logger.Info("starting health server", "port", cfg.Metrics.Port)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer client.Disconnect()

		if err := connectWithRetry(gctx, client, flags.retryAfter, logger); err != nil {
			return err
		}
		logger.Info("watching feed")

		<-gctx.Done()
		logger.Info("shutting down...")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("feedwatch stopped", "error", err)
		return err
	}

	logger.Info("feedwatch stopped")
	return nil
}

// connectWithRetry calls Connect until it succeeds, waiting retryAfter
// between permanent failures. A zero retryAfter returns the first failure.
func connectWithRetry(ctx context.Context, client *feed.Client, retryAfter time.Duration, logger *slog.Logger) error {
	for {
		err := client.Connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if retryAfter <= 0 {
			return fmt.Errorf("connect: %w", err)
		}

		logger.Warn("connect failed, retrying later",
			"error", err,
			"retry_after", retryAfter,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}
	}
}

// eventPrinter writes received posts to out.
type eventPrinter struct {
	out     io.Writer
	verbose bool
}

// post holds the fields printed for each post. Unknown fields are ignored.
type post struct {
	ID      json.RawMessage `json:"id"`
	Title   string          `json:"title"`
	Author  string          `json:"author"`
	Created string          `json:"created_at"`
}

func (p *eventPrinter) newPost(payload json.RawMessage) error {
	if p.verbose {
		_, err := fmt.Fprintf(p.out, "[new_post] %s\n", payload)
		return err
	}

	var item post
	if err := json.Unmarshal(payload, &item); err != nil {
		return fmt.Errorf("decode new_post: %w", err)
	}
	return p.printPost("new_post", item)
}

func (p *eventPrinter) newPosts(payload json.RawMessage) error {
	if p.verbose {
		_, err := fmt.Fprintf(p.out, "[new_posts] %s\n", payload)
		return err
	}

	var items []post
	if err := json.Unmarshal(payload, &items); err != nil {
		return fmt.Errorf("decode new_posts: %w", err)
	}
	fmt.Fprintf(p.out, "[new_posts] %d posts\n", len(items))
	for _, item := range items {
		if err := p.printPost("new_posts", item); err != nil {
			return err
		}
	}
	return nil
}

func (p *eventPrinter) printPost(kind string, item post) error {
	_, err := fmt.Fprintf(p.out, "[%s] id=%s title=%q author=%q created=%s\n",
		kind, item.ID, item.Title, item.Author, item.Created)
	return err
}
