// Package config loads the project configuration file (apiflow.yaml):
// transport defaults, the registry location, named environments and their
// seed variables. Discovery walks upward from the working directory so
// commands work from anywhere inside a project.
package config
