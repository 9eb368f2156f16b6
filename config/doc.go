// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Besides the server settings it carries the entity data model served by the
// service, so a running server can pick up model changes through Watcher.
package config
