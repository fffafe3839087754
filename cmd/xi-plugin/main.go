package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/pkg/errors"
	xiplugin "github.com/xi-editor/xi-plugin-go"
	"github.com/xi-editor/xi-plugin-go/config"
	"github.com/xi-editor/xi-plugin-go/internal/plugins"
	"github.com/xi-editor/xi-plugin-go/internal/sighandler"
	"github.com/xi-editor/xi-plugin-go/internal/util"
)

var version = "v0.1.0"

type signalError struct {
	sig os.Signal
}

func (e signalError) Error() string {
	return "received signal " + e.sig.String()
}

func (e signalError) ExitStatus() int {
	if s, ok := e.sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the exit status. stdout belongs to the core once the plugin
// is running, so everything else goes to stderr.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts cliOptions
	if _, err := opts.parse(args, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if opts.OptHelp {
		stderr.Write(opts.help())
		return 0
	}

	if opts.OptVersion {
		fmt.Fprintf(stderr, "xi-plugin: %s\n", version)
		return 0
	}

	registry := plugins.NewRegistry()
	if opts.OptList {
		for _, name := range registry.Names() {
			fmt.Fprintln(stdout, name)
		}
		return 0
	}

	cfg, err := loadConfig(opts.OptRcfile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	name := cfg.Plugin
	if opts.OptPlugin != "" {
		name = opts.OptPlugin
	}
	p, err := registry.New(name, cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fetchSize := cfg.FetchSize
	if opts.OptFetchSize > 0 {
		fetchSize = opts.OptFetchSize
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sig := sighandler.New(os.Interrupt, syscall.SIGTERM)
	sig.SignalReceivedFunc = func(s os.Signal) bool {
		cancel(signalError{sig: s})
		return false
	}
	go sig.Loop(ctx)

	err = xiplugin.Run(ctx, p, stdin, stdout,
		xiplugin.WithFetchSize(fetchSize),
		xiplugin.WithLog(stderr),
	)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && errors.Is(err, context.Canceled) {
			err = cause
		}
		fmt.Fprintln(stderr, err)
		st, _ := util.GetExitStatus(err)
		return st
	}
	return 0
}

// loadConfig reads rcfile, or the first config file found in the usual
// places. Not finding one is fine.
func loadConfig(rcfile string) (*config.Config, error) {
	var cfg config.Config
	if err := cfg.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize config")
	}

	if rcfile == "" {
		file, err := config.LocateRcfile(config.DefaultConfigLocator)
		if err != nil {
			return &cfg, nil
		}
		rcfile = file
	}

	if err := cfg.ReadFilename(rcfile); err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", rcfile)
	}
	return &cfg, nil
}
