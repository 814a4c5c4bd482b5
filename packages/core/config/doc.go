// Package config loads fetcher profiles.
//
// A profile is found by looking for .fetcher.yaml, .fetcher.yml,
// fetcher.json or .fetcher.json in the working directory and its parents.
// Profiles set the root URL, default headers and query parameters, the
// bearer token and transport settings for the CLI.
package config
