// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from the file given with --config, else from
// $XDG_CONFIG_HOME/appcompress/config.cue (~/Library/Application Support on
// macOS, %APPDATA% on Windows), else from ./config.cue. Missing files are not
// an error: defaults apply. Every key can be overridden from the environment
// with the APPCOMPRESS_ prefix (APPCOMPRESS_COMPRESSION_LEVEL,
// APPCOMPRESS_HTTP_TIMEOUT, ...).
//
// Files are validated against an embedded CUE schema (config_schema.cue)
// before they reach Viper.
package config
