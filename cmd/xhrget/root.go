// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/gogama/xhr"
	"github.com/gogama/xhr/fetch/httpfetch"
	"github.com/gogama/xhr/internal/config"
	xlog "github.com/gogama/xhr/internal/log"
	"github.com/gogama/xhr/retry"
	"github.com/gogama/xhr/timeout"
)

// ErrBadHeader is returned for a --header value without a colon.
var ErrBadHeader = errors.New(`header must have the form "Name: value"`)

// options holds the flags that only make sense on the command line.
type options struct {
	configFile string
	method     string
	data       string
	headers    []string
}

func newRootCmd() *cobra.Command {
	var (
		opts = &options{}
		cfg  *config.Config
	)

	cmd := &cobra.Command{
		Use:   "xhrget [flags] URL",
		Short: "Make one HTTP request and print the response body.",
		Long: `xhrget drives a single XMLHttpRequest-style request against a URL and
writes the response to standard output. The response type selects how the
body is rendered: raw bytes, text, indented JSON or a serialized document.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error

			cfg, err = config.LoadConfig(opts.configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if err = bindFlagsToConfig(cmd.Flags(), cfg); err != nil {
				return fmt.Errorf("failed to parse flags: %w", err)
			}

			xlog.Configure(xlog.Config{
				Level:   cfg.ParsedLogLevel.String(),
				Output:  cmd.ErrOrStderr(),
				Service: "xhrget",
			})

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		fmt.Sprintf("path to the configuration file (default is '%s' if it exists)", config.DefaultConfigFilename))

	flags := cmd.Flags()
	flags.StringVarP(&opts.method, "request", "X", http.MethodGet, "request method.")
	flags.StringVarP(&opts.data, "data", "d", "", "request body, sent as text/plain unless a Content-Type header is given.")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, `request header "Name: value", may be repeated.`)
	flags.String("timeout", "", "overall request timeout, for example 30s.")
	flags.String("attempt-timeout", "", "timeout of each transport attempt.")
	flags.Int("retries", 0, "retries of failed idempotent attempts made before headers arrive.")
	flags.StringP("speed-limit", "s", "", "response body speed limit per second, for example 500 kB.")
	flags.StringP("response-type", "t", "", "response type: text, arraybuffer, blob, document or json.")
	flags.Bool("with-credentials", false, "send credentials with cross-origin requests.")
	flags.BoolP("progress", "p", false, "show a progress bar on standard error.")
	flags.Bool("metrics", false, "log fetch metrics when the request ends.")
	flags.String("log-level", "", "log level: debug, info, warn or error.")

	return cmd
}

func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	if flag := flags.Lookup("timeout"); flag != nil && flag.Changed {
		cfg.Timeout, _ = flags.GetString("timeout")
	}

	if flag := flags.Lookup("attempt-timeout"); flag != nil && flag.Changed {
		cfg.AttemptTimeout, _ = flags.GetString("attempt-timeout")
	}

	if flag := flags.Lookup("retries"); flag != nil && flag.Changed {
		cfg.Retries, _ = flags.GetInt("retries")
	}

	if flag := flags.Lookup("speed-limit"); flag != nil && flag.Changed {
		cfg.SpeedLimit, _ = flags.GetString("speed-limit")
	}

	if flag := flags.Lookup("response-type"); flag != nil && flag.Changed {
		cfg.ResponseType, _ = flags.GetString("response-type")
	}

	if flag := flags.Lookup("with-credentials"); flag != nil && flag.Changed {
		cfg.WithCredentials, _ = flags.GetBool("with-credentials")
	}

	if flag := flags.Lookup("progress"); flag != nil && flag.Changed {
		cfg.Progress, _ = flags.GetBool("progress")
	}

	if flag := flags.Lookup("metrics"); flag != nil && flag.Changed {
		cfg.Metrics, _ = flags.GetBool("metrics")
	}

	if flag := flags.Lookup("log-level"); flag != nil && flag.Changed {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return config.ValidateConfig(cfg)
}

// newService builds the fetch service described by cfg. Its metrics
// are registered with reg.
func newService(cfg *config.Config, reg prometheus.Registerer) *httpfetch.Service {
	svc := &httpfetch.Service{
		Metrics: httpfetch.NewMetrics(reg),
	}

	if cfg.Retries > 0 {
		svc.RetryPolicy = retry.NewPolicy(
			retry.Times(cfg.Retries).
				And(retry.Idempotent).
				And(retry.StatusCode(429, 502, 503, 504).Or(retry.TransientErr)),
			retry.DefaultWaiter)
	}

	if cfg.ParsedAttemptTimeout > 0 {
		svc.TimeoutPolicy = timeout.Fixed(cfg.ParsedAttemptTimeout)
	}

	if cfg.ParsedSpeedLimit > 0 {
		burst := int(cfg.ParsedSpeedLimit)
		if burst > httpfetch.DefaultChunkSize {
			burst = httpfetch.DefaultChunkSize
		}
		svc.Limiter = rate.NewLimiter(rate.Limit(cfg.ParsedSpeedLimit), burst)
	}

	return svc
}

// requestHeaders merges the configured headers with those given on the
// command line, which come last.
func requestHeaders(cfg *config.Config, flagHeaders []string) ([][2]string, error) {
	names := make([]string, 0, len(cfg.Headers))
	for name := range cfg.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([][2]string, 0, len(names)+len(flagHeaders))
	for _, name := range names {
		headers = append(headers, [2]string{name, cfg.Headers[name]})
	}

	for _, h := range flagHeaders {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadHeader, h)
		}
		headers = append(headers, [2]string{strings.TrimSpace(name), strings.TrimSpace(value)})
	}

	return headers, nil
}

func run(ctx context.Context, cfg *config.Config, opts *options, rawURL string, stdout, stderr io.Writer) error {
	logger := xlog.WithComponent("xhrget")
	reg := prometheus.NewRegistry()

	loop := &xhr.Loop{}
	r := xhr.New(loop)
	r.Fetcher = newService(cfg, reg)
	r.Handlers = &xhr.HandlerGroup{}

	var (
		failure xhr.Kind
		bar     *progressbar.ProgressBar
	)

	for _, kind := range []xhr.Kind{xhr.KindAbort, xhr.KindTimeout, xhr.KindNetwork} {
		kind := kind
		r.Handlers.PushBack(kind.Event(), xhr.HandlerFunc(func(xhr.Event, *xhr.Notification) {
			failure = kind
		}))
	}

	if cfg.Progress {
		r.Handlers.PushBack(xhr.Progress, xhr.HandlerFunc(func(_ xhr.Event, n *xhr.Notification) {
			if bar == nil {
				bar = newProgressBar(n, stderr)
			}
			_ = bar.Set64(int64(n.Loaded))
		}))
	}

	r.Handlers.PushBack(xhr.LoadEnd, xhr.HandlerFunc(func(xhr.Event, *xhr.Notification) {
		loop.Close()
	}))

	if err := r.SetWithCredentials(cfg.WithCredentials); err != nil {
		return err
	}

	if err := r.SetResponseType(cfg.ParsedResponseType); err != nil {
		return err
	}

	if err := r.SetTimeout(cfg.ParsedTimeout); err != nil {
		return err
	}

	if err := r.Open(opts.method, rawURL, true); err != nil {
		return err
	}

	headers, err := requestHeaders(cfg, opts.headers)
	if err != nil {
		return err
	}

	for _, h := range headers {
		if err = r.SetRequestHeader(h[0], h[1]); err != nil {
			return fmt.Errorf("header %q: %w", h[0], err)
		}
	}

	var body interface{}
	if opts.data != "" {
		body = opts.data
	}

	start := time.Now()

	if err = r.Send(body); err != nil {
		return err
	}

	if err = loop.Run(ctx); err != nil {
		r.Abort()

		return err
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if cfg.Metrics {
		logMetrics(&logger, reg)
	}

	if failure != 0 {
		return &xhr.Error{Kind: failure, Op: "send"}
	}

	n, err := writeResponse(stdout, r)
	if err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	logger.Info().
		Int("status", r.Status()).
		Str("url", r.ResponseURL()).
		Str("size", humanize.Bytes(uint64(n))).
		Dur("elapsed", time.Since(start)).
		Msg("Request finished")

	return nil
}

func newProgressBar(n *xhr.Notification, w io.Writer) *progressbar.ProgressBar {
	total := int64(-1)
	if n.LengthComputable {
		total = int64(n.Total)
	}

	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(w) }),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// writeResponse renders the response for its response type and returns
// the number of bytes written.
func writeResponse(w io.Writer, r *xhr.Request) (int, error) {
	v := r.Response()
	if v.Null {
		if v.Type == xhr.JSON {
			return io.WriteString(w, "null\n")
		}

		return 0, nil
	}

	switch v.Type {
	case xhr.ArrayBuffer:
		return w.Write(v.Buffer)
	case xhr.Blob:
		return w.Write(v.Blob.Bytes())
	case xhr.JSON:
		b, err := json.MarshalIndent(v.Value, "", "  ")
		if err != nil {
			return 0, err
		}

		return w.Write(append(b, '\n'))
	case xhr.Document:
		b, err := v.Document.Serialize()
		if err != nil {
			return 0, err
		}

		return w.Write(b)
	default:
		return io.WriteString(w, v.Text)
	}
}

func logMetrics(logger *zerolog.Logger, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to gather metrics")

		return
	}

	for _, family := range families {
		for _, m := range family.GetMetric() {
			e := logger.Info().Str("metric", family.GetName())
			for _, label := range m.GetLabel() {
				e = e.Str(label.GetName(), label.GetValue())
			}

			switch {
			case m.GetCounter() != nil:
				e = e.Float64("value", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				e = e.Float64("value", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				e = e.Uint64("count", m.GetHistogram().GetSampleCount()).
					Float64("sum", m.GetHistogram().GetSampleSum())
			}

			e.Msg("Fetch metric")
		}
	}
}
