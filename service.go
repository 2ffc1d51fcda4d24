package treesync

import (
	"log/slog"
	"os"
	"sync"

	"github.com/gossip-lsp/treesync/config"
	"github.com/gossip-lsp/treesync/coordinator"
	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/event"
	"github.com/gossip-lsp/treesync/grammar"
	"github.com/gossip-lsp/treesync/protocol"
	"github.com/gossip-lsp/treesync/treesitter"
)

// Service is the central type of treesync. It owns the document store, the
// grammar importer, the parser and one coordinator per open document.
type Service struct {
	logger       *slog.Logger
	level        *slog.LevelVar
	customLogger bool

	registry    *grammar.Registry
	baseAliases map[string]string
	importer    coordinator.Importer
	grammars    *grammar.Importer // nil when a custom importer is used
	parser      treesitter.Parser
	tsParser    *treesitter.TreeSitterParser // nil when a custom parser is used

	docs    *document.Store
	manager *coordinator.Manager

	initial      *config.Settings
	settingsPath string
	settings     *config.Store[config.Settings]
	reloader     *config.Reloader[config.Settings]
	watcher      *config.Watcher

	subs      event.Group
	closeOnce sync.Once
}

// New creates a service. Without options it uses the builtin grammars, a
// tree-sitter parser and default settings, logging to stderr.
func New(opts ...Option) (*Service, error) {
	level := new(slog.LevelVar)
	s := &Service{
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
		level:  level,
		docs:   document.NewStore(),
	}
	for _, o := range opts {
		o(s)
	}

	if s.importer == nil {
		if s.registry == nil {
			s.registry = grammar.Builtin()
		}
		s.grammars = grammar.NewImporter(s.registry, grammar.WithLogger(s.logger))
		s.importer = s.grammars
	}
	if s.registry != nil {
		s.baseAliases = s.registry.Aliases()
	}
	if s.parser == nil {
		s.tsParser = treesitter.NewTreeSitterParser(treesitter.WithLogger(s.logger))
		s.parser = s.tsParser
	}

	s.manager = coordinator.NewManager(s.docs, s.importer, s.parser, coordinator.WithLogger(s.logger))
	if err := s.startSettings(); err != nil {
		s.manager.Close()
		if s.tsParser != nil {
			s.tsParser.Close()
		}
		return nil, err
	}
	return s, nil
}

// Open starts tracking a document and requests its first tree.
func (s *Service) Open(params *protocol.DidOpenTextDocumentParams) *document.Document {
	s.logger.Debug("document opened", "uri", params.TextDocument.URI, "language", params.TextDocument.LanguageID)
	return s.docs.Open(params)
}

// Change applies content changes to an open document.
func (s *Service) Change(params *protocol.DidChangeTextDocumentParams) {
	s.docs.Change(params)
}

// ChangeLanguage switches the language mode of an open document.
func (s *Service) ChangeLanguage(params *protocol.DidChangeLanguageParams) {
	s.docs.ChangeLanguage(params)
}

// CloseDocument stops tracking a document and releases its tree.
func (s *Service) CloseDocument(params *protocol.DidCloseTextDocumentParams) {
	s.logger.Debug("document closed", "uri", params.TextDocument.URI)
	s.docs.Close(params)
}

// Tree returns the current tree of the document at uri, or nil if the
// document is not open or has no tree yet.
func (s *Service) Tree(uri protocol.DocumentURI) *treesitter.Snapshot {
	return s.manager.Tree(uri)
}

// OnTreeUpdate registers a listener for trees published for any document.
func (s *Service) OnTreeUpdate(fn func(coordinator.TreeUpdate)) event.Subscription {
	return s.manager.OnTreeUpdate(fn)
}

// OnFailure registers a listener for failed generations of any document.
func (s *Service) OnFailure(fn func(coordinator.DocumentFailure)) event.Subscription {
	return s.manager.OnFailure(fn)
}

// LanguageForPath guesses a language id from a file path using the grammar
// registry. It returns false when nothing matches or a custom importer
// without a registry is in use.
func (s *Service) LanguageForPath(path string) (string, bool) {
	if s.registry == nil {
		return "", false
	}
	return s.registry.LanguageForPath(path)
}

// --- Accessor methods ---

// Documents returns the document store.
func (s *Service) Documents() *document.Store { return s.docs }

// Manager returns the coordinator manager.
func (s *Service) Manager() *coordinator.Manager { return s.manager }

// Settings returns the current settings.
func (s *Service) Settings() *config.Settings { return s.settings.Get() }

// SettingsStore returns the settings store. Swapping a value applies it.
func (s *Service) SettingsStore() *config.Store[config.Settings] { return s.settings }

// Logger returns the service's logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// Close disposes every coordinator, stops watching the settings file and
// releases the builtin parser's pooled tree-sitter parsers.
// Close is idempotent.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.subs.Dispose()
		if s.watcher != nil {
			err = s.watcher.Close()
		}
		s.manager.Close()
		if s.tsParser != nil {
			s.tsParser.Close()
		}
	})
	return err
}
