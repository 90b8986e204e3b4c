package cmd

import (
	"fmt"
	"strings"

	"github.com/jimezsa/jobcrawl/internal/config"
)

type ConfigCmd struct {
	Init InitConfigCmd `cmd:"" help:"Write default config.json, proxies.txt and targets.yaml."`
	Path PathConfigCmd `cmd:"" help:"Print config directory."`
	Show ShowConfigCmd `cmd:"" help:"Print the effective configuration."`
}

type InitConfigCmd struct{}

type PathConfigCmd struct{}

type ShowConfigCmd struct{}

func (c *InitConfigCmd) Run(ctx *Context) error {
	paths, err := config.Init()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		ctx.UI.Infof("Config already initialized at %s", ctx.ConfigDir)
		return nil
	}
	ctx.UI.Successf("Created: %s", strings.Join(paths, ", "))
	return nil
}

func (c *PathConfigCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintln(ctx.Out, ctx.ConfigDir)
	return err
}

// Run prints the layered config with credentials in connection URLs masked.
func (c *ShowConfigCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	cfg.DatabaseURL = redact(cfg.DatabaseURL)
	cfg.RedisURL = redact(cfg.RedisURL)
	return writeJSON(ctx.Out, cfg)
}
