package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/treestore/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store over HTTP",
		Long: `Serve the store as a JSON HTTP API until interrupted.

The server holds the database write lock for its lifetime, so other
writers (save, rm, init) fail while it runs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := opts.open(f, true)
	if err != nil {
		return f.Fail(err)
	}
	defer s.close()

	if _, err := s.tree.Initialize(ctx); err != nil {
		return f.Fail(err)
	}

	cfg := server.Config{
		Addr:         s.cfg.Server.Addr,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	if err := server.New(s.tree, cfg, s.log).Run(ctx); err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "serve", err))
	}
	return nil
}
