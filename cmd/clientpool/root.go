package main

import (
	"context"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"go.eggybyte.com/clientpool/clientx"
	"go.eggybyte.com/clientpool/configx"
	"go.eggybyte.com/clientpool/core/errors"
	"go.eggybyte.com/clientpool/core/identity"
	"go.eggybyte.com/clientpool/core/log"
	"go.eggybyte.com/clientpool/logx"
)

// app carries state shared by all subcommands once the root has loaded config.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    clientx.Config
	logger log.Logger
}

// newRootCmd builds the command tree bound to a.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clientpool",
		Short: "Inspect and exercise the HTTP client registry",
		Long: `Inspect and exercise the HTTP client registry.

Requests that take the same network path share one client and one
connection pool. This tool shows which path a URL resolves to and can
send requests through a registry built from the loaded configuration.

Configuration is read from the --config file, then CLIENTPOOL_* and
LOG_* environment variables, then the global flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: logfmt, json")

	cmd.AddCommand(newIdentityCmd(a), newProbeCmd(a))
	return cmd
}

// load merges file, environment and flag settings into a.cfg and builds the logger.
func (a *app) load(ctx context.Context, logOut io.Writer) error {
	var sources []configx.Source
	if a.configPath != "" {
		sources = append(sources, configx.NewFileSource(a.configPath))
	}
	sources = append(sources, configx.NewEnvSource(configx.EnvOptions{}))

	overrides := make(map[string]string)
	if a.logLevel != "" {
		overrides["LOG_LEVEL"] = a.logLevel
	}
	if a.logFormat != "" {
		overrides["LOG_FORMAT"] = a.logFormat
	}
	sources = append(sources, configx.NewMapSource(overrides))

	if err := configx.Load(ctx, &a.cfg, sources...); err != nil {
		return err
	}

	level, err := logx.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "clientpool.load", err)
	}
	a.logger = logx.New(
		logx.WithFormat(logx.Format(a.cfg.LogFormat)),
		logx.WithLevel(level),
		logx.WithWriter(logOut),
	)
	return nil
}

// selectorFlags holds the proxy choice shared by identity and probe.
type selectorFlags struct {
	proxy    string
	envProxy bool
}

func (f *selectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.proxy, "proxy", "", "Send every request through this proxy URL")
	cmd.Flags().BoolVar(&f.envProxy, "env-proxy", false, "Choose proxies from HTTP_PROXY, HTTPS_PROXY and NO_PROXY")
	cmd.MarkFlagsMutuallyExclusive("proxy", "env-proxy")
}

func (f *selectorFlags) selector() (identity.ProxySelector, error) {
	const op = "clientpool.selector"

	switch {
	case f.proxy != "":
		proxy, err := url.Parse(f.proxy)
		if err != nil {
			return nil, errors.Wrap(errors.CodeInvalidArgument, op, err)
		}
		if err := clientx.ValidateProxyURL(proxy); err != nil {
			return nil, err
		}
		return identity.Fixed(proxy), nil
	case f.envProxy:
		return identity.FromEnvironment()
	default:
		return identity.Direct(), nil
	}
}

// parseTargets parses absolute request URLs.
func parseTargets(args []string) ([]*url.URL, error) {
	const op = "clientpool.parseTargets"

	targets := make([]*url.URL, 0, len(args))
	for _, raw := range args {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(errors.CodeInvalidArgument, op, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New(errors.CodeInvalidArgument, op, "URL must be absolute: "+raw)
		}
		targets = append(targets, u)
	}
	return targets, nil
}
