package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/network"
)

type ProxiesCmd struct {
	Check ProxyCheckCmd `cmd:"" help:"Validate proxies against a target URL."`
}

type ProxyCheckCmd struct {
	Target  string        `help:"Target URL." default:"https://www.naukri.com/robots.txt"`
	Timeout time.Duration `help:"Per-proxy timeout." default:"15s"`
	Proxies string        `help:"Comma-separated proxy URIs; overrides PROXY_LIST and proxies.txt."`
}

type ProxyCheckResult struct {
	Proxy     string `json:"proxy"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func (p *ProxyCheckCmd) Run(ctx *Context) error {
	proxies, err := config.LoadProxies(p.Proxies)
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return errors.New("no proxies configured")
	}

	results := make([]ProxyCheckResult, 0, len(proxies))
	for _, proxy := range proxies {
		if ctx.context().Err() != nil {
			break
		}
		results = append(results, p.check(ctx.context(), proxy, network.NewClient))
	}
	return writeProxyResults(ctx, results)
}

func (p *ProxyCheckCmd) check(ctx context.Context, proxy string, transport network.TransportFactory) ProxyCheckResult {
	result := ProxyCheckResult{Proxy: proxy, Status: "error"}
	if err := config.ValidateProxies([]string{proxy}); err != nil {
		result.Error = err.Error()
		return result
	}
	u, err := url.Parse(proxy)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	headers := network.GenerateStealthHeaders(nil)
	session := &network.Session{UserAgent: headers["User-Agent"], Headers: headers, Proxy: u, CreatedAt: time.Now()}
	client, err := transport(session)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, p.Target, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	_ = resp.Body.Close()

	result.LatencyMS = time.Since(start).Milliseconds()
	result.Status = strconv.Itoa(resp.StatusCode)
	return result
}

func writeProxyResults(ctx *Context, results []ProxyCheckResult) error {
	if ctx.JSONOutput {
		return writeJSON(ctx.Out, results)
	}

	if ctx.PlainText {
		for _, res := range results {
			line := []string{redact(res.Proxy), res.Status, strconv.FormatInt(res.LatencyMS, 10), res.Error}
			fmt.Fprintln(ctx.Out, strings.Join(line, "\t"))
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "proxy\tstatus\tlatency_ms\terror")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", redact(res.Proxy), res.Status, res.LatencyMS, res.Error)
	}
	return tw.Flush()
}
