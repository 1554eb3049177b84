// Package config loads the project configuration: the compiler settings, the
// artifact and source paths, and the table of named networks. Values are
// layered from built-in defaults, the YAML project file and FORGE_
// environment variables, then resolved against the project root and the
// local secrets file before validation.
package config
