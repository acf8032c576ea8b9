// Package config loads docrender configuration.
//
// Configuration comes from, in increasing priority: built-in defaults, a
// docrender.yaml (or .json/.toml) file, and DOCRENDER_* environment
// variables. Nested keys map to environment names with underscores:
// cache.s3.bucket is DOCRENDER_CACHE_S3_BUCKET.
//
// # Configuration File Structure
//
//	server:
//	  addr: ":8080"
//	  render_timeout: 10s
//	templates:
//	  dir: ./templates
//	  default: rhuk
//	modules:
//	  store: yaml
//	  seed: ./modules.yaml
//	  units: ./units
//	cache:
//	  enabled: true
//	  backend: s3
//	  ttl: 15m
//	  s3:
//	    bucket: site-fragments
//	    region: eu-west-1
//	document:
//	  generator: "Widget 1.0"
//	  default_style: xhtml
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    errors.Fprint(os.Stderr, err)
//	    os.Exit(1)
//	}
package config
