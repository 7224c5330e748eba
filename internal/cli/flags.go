package cli

import (
	"time"

	"github.com/ppiankov/thermobook/internal/model"
	"github.com/spf13/cobra"
)

// fetchFlags are the HTTP overrides shared by every command that fetches pages
type fetchFlags struct {
	userAgent   string
	timeout     time.Duration
	noCache     bool
	noRobots    bool
	insecureTLS bool
	httpProxy   string
	httpsProxy  string
}

func (f *fetchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.userAgent, "ua", "", "HTTP User-Agent (default from config)")
	cmd.Flags().DurationVar(&f.timeout, "http-timeout", 0, "per request timeout (default from config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable cache (force fresh fetch)")
	cmd.Flags().BoolVar(&f.noRobots, "no-robots", false, "do not consult robots.txt")
	cmd.Flags().BoolVar(&f.insecureTLS, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// apply overlays the flags that were set onto cfg
func (f *fetchFlags) apply(cfg *model.Config) {
	if f.userAgent != "" {
		cfg.HTTP.UserAgent = f.userAgent
	}
	if f.timeout > 0 {
		cfg.HTTP.Timeout = f.timeout
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.noRobots {
		cfg.Robots.Enabled = false
	}
	if f.insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if f.httpProxy != "" {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if f.httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
}
