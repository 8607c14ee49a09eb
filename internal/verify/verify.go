// Package verify smoke-crawls the registered origins through the live HTTP
// listener, checking each mount root answers the way a crawler would see it.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/logging"
	"github.com/crawlkit/origind/internal/origin"
)

// Config controls the smoke crawl.
type Config struct {
	Enabled bool
	Timeout time.Duration
}

// Result records one probed mount root.
type Result struct {
	Host   string
	Path   string
	Status int
	Err    error
}

// OK reports whether the probe came back 200.
func (r Result) OK() bool {
	return r.Err == nil && r.Status == http.StatusOK
}

// Checker probes origins with a Colly collector.
type Checker struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Checker.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Checker{cfg: cfg, logger: logging.OrNop(logger)}
}

// Crawl fetches every mount's URL path for every host in mounts through the
// listener at addr, with the virtual-host name carried as the request host.
// It returns the per-probe results plus an error when any probe failed.
func (c *Checker) Crawl(ctx context.Context, addr string, mounts map[string][]origin.Mount) ([]Result, error) {
	hosts := make([]string, 0, len(mounts))
	for host := range mounts {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	var results []Result
	for _, host := range hosts {
		for _, m := range mounts[host] {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results = append(results, c.probe(addr, host, m.URLPath))
		}
	}

	failed := 0
	for _, r := range results {
		if r.OK() {
			continue
		}
		failed++
		c.logger.Warn("origin probe failed",
			zap.String("host", r.Host),
			zap.String("path", r.Path),
			zap.Int("status", r.Status),
			zap.Error(r.Err),
		)
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d origin probes failed", failed, len(results))
	}
	c.logger.Info("all origin probes passed", zap.Int("count", len(results)))
	return results, nil
}

func (c *Checker) probe(addr, host, urlPath string) Result {
	result := Result{Host: host, Path: urlPath, Status: -1}

	collector := colly.NewCollector(colly.Async(false))
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	// The probe dials the listener directly; the virtual-host name rides in
	// the request host, the way the origin router matches it.
	collector.WithTransport(hostRewriteTransport{host: host})

	collector.OnResponse(func(r *colly.Response) {
		result.Status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		result.Status = r.StatusCode
		result.Err = err
	})

	if err := collector.Visit("http://" + addr + urlPath); err != nil {
		result.Err = err
	}
	collector.Wait()
	return result
}

// hostRewriteTransport stamps the virtual-host name onto each outgoing
// request.
type hostRewriteTransport struct {
	host string
}

func (t hostRewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Host = t.host
	return http.DefaultTransport.RoundTrip(req)
}
