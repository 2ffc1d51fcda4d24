package treesync

import (
	"log/slog"

	"github.com/gossip-lsp/treesync/config"
	"github.com/gossip-lsp/treesync/coordinator"
	"github.com/gossip-lsp/treesync/grammar"
	"github.com/gossip-lsp/treesync/treesitter"
)

// Option configures a Service during construction.
type Option func(*Service)

// WithLogger sets a custom slog logger. The log_level setting has no effect
// on a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
		s.customLogger = true
	}
}

// WithRegistry replaces the builtin grammar registry.
func WithRegistry(r *grammar.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithImporter replaces the grammar importer. Settings that tune the builtin
// importer (load_timeout, aliases) are not applied to a custom importer.
func WithImporter(imp coordinator.Importer) Option {
	return func(s *Service) {
		s.importer = imp
	}
}

// WithParser replaces the tree-sitter parser.
func WithParser(p treesitter.Parser) Option {
	return func(s *Service) {
		s.parser = p
	}
}

// WithSettings sets the initial settings.
func WithSettings(cfg *config.Settings) Option {
	return func(s *Service) {
		s.initial = cfg
	}
}

// WithSettingsFile loads settings from a TOML file and reloads them when the
// file changes. A missing file yields the default settings.
func WithSettingsFile(path string) Option {
	return func(s *Service) {
		s.settingsPath = path
	}
}
