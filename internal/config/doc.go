// Package config provides configuration structures and utilities for
// triesearch: crawl limits, transport selection, report format, the YAML
// .triesearch file with per-site settings and the XDG directories.
package config
