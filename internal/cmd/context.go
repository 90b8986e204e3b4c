package cmd

import (
	"context"
	"io"

	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/ui"
	"github.com/rs/zerolog"
)

type Context struct {
	// Signal is cancelled on SIGINT/SIGTERM.
	Signal     context.Context
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode
}

func (c *Context) context() context.Context {
	if c.Signal == nil {
		return context.Background()
	}
	return c.Signal
}
