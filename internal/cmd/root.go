package cmd

import "github.com/alecthomas/kong"

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Crawl every enabled source, or a single one."`
	Sources SourcesCmd `cmd:"" help:"List sources and whether they are enabled."`
	Jobs    JobsCmd    `cmd:"" help:"Print jobs from the store."`
	Proxies ProxiesCmd `cmd:"" help:"Proxy utilities."`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration."`
	Version VersionCmd `cmd:"" help:"Print version."`
}

func NewCLI() *CLI {
	return &CLI{}
}
