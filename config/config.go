// Package config parses command-line flags (doubling as environment
// variables under the BANANAS_SERVER_ prefix, spec.md §6) into a single
// immutable Config value.
/*
 * Grounded on vjache-cie's cmd/cie flag wiring and the teacher's
 * api/env constant-table idiom, applied to this server's own variables.
 */
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const envPrefix = "BANANAS_SERVER_"

type Config struct {
	ListenAddr     string
	HTTPAddr       string
	StorageRoot    string
	StorageBucket  string // set to use the S3 backend instead of the local one
	IndexRoot      string
	LogDir         string
	LogToStderr    bool
	AlsoLogStderr  bool

	ReloadSecret        string
	BootstrapUniqueID   string // empty disables bootstrap reordering
	ProxyProtocol       bool
	TrustForwardedProto bool

	CDNURLs     []string
	CDNFallback string
}

// Parse builds a Config from args (typically os.Args[1:]), falling back to
// BANANAS_SERVER_-prefixed environment variables for any flag not passed
// explicitly.
func Parse(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("bananasrv", pflag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.ListenAddr, "listen", envOr("LISTEN", ":3978"), "TCP content-protocol listen address")
	fs.StringVar(&cfg.HTTPAddr, "http-listen", envOr("HTTP_LISTEN", ":8080"), "HTTP surface listen address")
	fs.StringVar(&cfg.StorageRoot, "storage-root", envOr("STORAGE_ROOT", ""), "local filesystem content root")
	fs.StringVar(&cfg.StorageBucket, "storage-bucket", envOr("STORAGE_BUCKET", ""), "S3 bucket to use instead of the local storage root")
	fs.StringVar(&cfg.IndexRoot, "index-root", envOr("INDEX_ROOT", ""), "YAML catalog tree root")
	fs.StringVar(&cfg.LogDir, "log-dir", envOr("LOG_DIR", "/var/log/bananas-server"), "log file directory")
	fs.BoolVar(&cfg.LogToStderr, "logtostderr", envOrBool("LOGTOSTDERR", false), "write logs only to stderr")
	fs.BoolVar(&cfg.AlsoLogStderr, "alsologtostderr", envOrBool("ALSOLOGTOSTDERR", false), "also mirror logs to stderr")
	fs.StringVar(&cfg.ReloadSecret, "reload-secret", envOr("RELOAD_SECRET", ""), "shared secret required by POST /reload")
	fs.StringVar(&cfg.BootstrapUniqueID, "bootstrap-unique-id", envOr("BOOTSTRAP_UNIQUE_ID", ""), "base graphics unique id (hex) to always list first")
	fs.BoolVar(&cfg.ProxyProtocol, "proxy-protocol", envOrBool("PROXY_PROTOCOL", false), "expect a PROXY v1 preamble on new TCP connections")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", envOrBool("TRUST_FORWARDED_PROTO", false), "trust X-Forwarded-Proto for HTTPS rewriting")
	cdnURLs := fs.StringSlice("cdn-url", envOrSlice("CDN_URL", nil), "CDN mirror base URL (repeatable)")
	fs.StringVar(&cfg.CDNFallback, "cdn-fallback", envOr("CDN_FALLBACK", ""), "CDN URL to use when the healthy pool is empty")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.CDNURLs = *cdnURLs

	if cfg.StorageRoot == "" && cfg.StorageBucket == "" {
		return nil, fmt.Errorf("config: one of --storage-root or --storage-bucket is required")
	}
	if cfg.IndexRoot == "" {
		return nil, fmt.Errorf("config: --index-root is required")
	}
	return cfg, nil
}

func envOr(suffix, def string) string {
	if v, ok := os.LookupEnv(envPrefix + suffix); ok {
		return v
	}
	return def
}

func envOrBool(suffix string, def bool) bool {
	v, ok := os.LookupEnv(envPrefix + suffix)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrSlice(suffix string, def []string) []string {
	v, ok := os.LookupEnv(envPrefix + suffix)
	if !ok {
		return def
	}
	return strings.Split(v, ",")
}
