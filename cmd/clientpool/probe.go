package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"go.eggybyte.com/clientpool/clientx"
	"go.eggybyte.com/clientpool/core/errors"
	"go.eggybyte.com/clientpool/core/identity"
	"go.eggybyte.com/clientpool/core/log"
	"go.eggybyte.com/clientpool/obsx"
	"go.eggybyte.com/clientpool/runtimex"
)

const opProbe = "clientpool.probe"

type probeOptions struct {
	selectorFlags
	method      string
	metricsAddr string
	healthAddr  string
}

func newProbeCmd(a *app) *cobra.Command {
	opts := &probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe [--proxy URL | --env-proxy] [--method GET] [--metrics-addr ADDR] [--health-addr ADDR] URL...",
		Short: "Send one request per URL through a client registry",
		Long: `Send one request per URL through a client registry.

For each URL the status, identity, whether the client was shared with
an earlier URL and the number of Set-Cookie headers are printed.
Redirects are reported, not followed.

With --metrics-addr the registry metrics are served on /metrics, and
with --health-addr a /health endpoint reports whether every probe
succeeded. Both are served until the process is interrupted.

Example:
  clientpool probe --metrics-addr :9090 https://api.example.com/healthz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, a, opts, args)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.method, "method", http.MethodGet, "HTTP method")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.healthAddr, "health-addr", "", "Serve a health endpoint on this address")
	return cmd
}

func runProbe(cmd *cobra.Command, a *app, opts *probeOptions, args []string) error {
	ctx := cmd.Context()

	sel, err := opts.selector()
	if err != nil {
		return err
	}
	targets, err := parseTargets(args)
	if err != nil {
		return err
	}

	var provider *obsx.Provider
	if opts.metricsAddr != "" {
		provider, err = obsx.NewProvider(ctx, obsx.Options{ServiceName: "clientpool"})
		if err != nil {
			return err
		}
		defer provider.Shutdown(context.Background())
		if err := provider.EnableRuntimeMetrics(ctx); err != nil {
			return err
		}
	}
	metrics, err := clientx.NewMetrics(provider)
	if err != nil {
		return err
	}

	registry := clientx.New(
		clientx.WithFactory(clientx.FactoryFromConfig(a.cfg)),
		clientx.WithLogger(a.logger),
		clientx.WithMetrics(metrics),
	)

	out := cmd.OutOrStdout()
	seen := make(map[*http.Client]bool)
	failed := 0
	for _, target := range targets {
		client, err := registry.GetClient(sel, target)
		if err != nil {
			return err
		}
		shared := seen[client]
		seen[client] = true

		status, cookies, err := probeOnce(ctx, client, opts.method, target.String())
		if err != nil {
			failed++
			a.logger.Error(err, "probe failed", log.Str("url", target.Redacted()))
			fmt.Fprintf(out, "%s error %s shared=%t\n", target.Redacted(), identity.Resolve(sel, target), shared)
			continue
		}
		fmt.Fprintf(out, "%s %d %s shared=%t cookies=%d\n",
			target.Redacted(), status, identity.Resolve(sel, target), shared, cookies)
	}
	a.logger.Info("probe finished", log.Int("urls", len(targets)), log.Int("clients", registry.Len()))

	if opts.metricsAddr != "" || opts.healthAddr != "" {
		if err := serveEndpoints(ctx, out, a.logger, opts, provider, failed); err != nil {
			return err
		}
	}

	if failed > 0 {
		return errors.New(errors.CodeUnavailable, opProbe, fmt.Sprintf("%d of %d requests failed", failed, len(targets)))
	}
	return nil
}

// probeOnce sends one request and drains the body.
func probeOnce(ctx context.Context, client *http.Client, method, target string) (status, cookies int, err error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, 0, errors.Wrap(errors.CodeInvalidArgument, opProbe, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, errors.Wrap(errors.CodeUnavailable, opProbe, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, 0, errors.Wrap(errors.CodeUnavailable, opProbe, err)
	}
	return resp.StatusCode, len(resp.Header.Values("Set-Cookie")), nil
}

// serveEndpoints serves the metrics and health endpoints until ctx is done.
// The health endpoint reports unhealthy when any probe failed.
func serveEndpoints(ctx context.Context, out io.Writer, logger log.Logger, opts *probeOptions, provider *obsx.Provider, failed int) error {
	rtOpts := runtimex.Options{
		Logger: logger,
		Ready: func(name string, addr net.Addr) {
			path := runtimex.MetricsPath
			if name == "health" {
				path = runtimex.HealthPath
			}
			fmt.Fprintf(out, "serving %s on http://%s%s\n", name, addr, path)
		},
	}
	if opts.metricsAddr != "" {
		rtOpts.Metrics = &runtimex.Endpoint{Addr: opts.metricsAddr}
		rtOpts.MetricsHandler = provider.PrometheusHandler()
	}
	if opts.healthAddr != "" {
		rtOpts.Health = &runtimex.Endpoint{Addr: opts.healthAddr}
		rtOpts.HealthCheckers = []runtimex.HealthChecker{runtimex.HealthCheckFunc{
			CheckName: "probe",
			Fn: func(context.Context) error {
				if failed > 0 {
					return errors.New(errors.CodeUnavailable, opProbe, fmt.Sprintf("%d requests failed", failed))
				}
				return nil
			},
		}}
	}
	return runtimex.Run(ctx, rtOpts)
}
