package main

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

type cliOptions struct {
	OptHelp      bool   `short:"h" long:"help" description:"show this help message and exit"`
	OptPlugin    string `short:"p" long:"plugin" description:"name of the plugin to run"`
	OptRcfile    string `long:"rcfile" description:"path to the settings file"`
	OptFetchSize int    `long:"fetch-size" description:"number of bytes to request from the core at a time"`
	OptList      bool   `long:"list" description:"list the available plugins and exit"`
	OptVersion   bool   `long:"version" description:"print the version and exit"`
}

func (options *cliOptions) parse(s []string, stderr io.Writer) ([]string, error) {
	p := flags.NewParser(options, flags.PrintErrors)
	args, err := p.ParseArgs(s)
	if err != nil {
		stderr.Write(options.help())
		return nil, errors.Wrap(err, "invalid command line options")
	}

	if err := options.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid command line arguments")
	}

	return args, nil
}

func (options cliOptions) Validate() error {
	if options.OptFetchSize < 0 {
		return errors.Errorf("invalid fetch size %d", options.OptFetchSize)
	}
	return nil
}

func (options cliOptions) help() []byte {
	buf := bytes.Buffer{}

	fmt.Fprintf(&buf, `
Usage: xi-plugin [options]

Talks to the xi core over stdin and stdout.

Options:
`)

	t := reflect.TypeOf(options)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag

		var o string
		if s := tag.Get("short"); s != "" {
			o = fmt.Sprintf("-%s, --%s", tag.Get("short"), tag.Get("long"))
		} else {
			o = fmt.Sprintf("--%s", tag.Get("long"))
		}

		fmt.Fprintf(
			&buf,
			"  %-21s %s\n",
			o,
			tag.Get("description"),
		)
	}

	return buf.Bytes()
}
