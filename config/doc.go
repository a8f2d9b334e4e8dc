// Package config loads evalcache settings from YAML.
//
// A file overlays Default, so every key is optional:
//
//	store:
//	  backend: bolt
//	  path: ${XDG_CACHE_HOME}/evalcache/cache.db
//	env_allowlist: [NIXPKGS_ALLOW_UNFREE]
//	ignore_prefixes: [/nix/store/]
//	observe:
//	  service_name: evalcache
//	  logging: {enabled: true, level: info}
package config
