package treesync

import (
	"maps"

	"github.com/gossip-lsp/treesync/config"
	"github.com/gossip-lsp/treesync/coordinator"
)

// startSettings loads the initial settings, starts the watcher when a file
// is configured and applies every later swap.
func (s *Service) startSettings() error {
	initial := s.initial
	if initial == nil {
		initial = config.DefaultSettings()
	}
	if err := initial.Validate(); err != nil {
		return err
	}
	s.settings = config.NewStore(initial)

	if s.settingsPath != "" {
		s.reloader = config.NewReloader(s.settings, s.settingsPath, initial, s.logger)
		if err := s.reloader.Reload(); err != nil {
			return err
		}
		w, err := config.NewWatcher(s.settingsPath, func() {
			// Errors are logged by the reloader; the current settings stay.
			_ = s.reloader.Reload()
		}, config.WithWatcherLogger(s.logger))
		if err != nil {
			// Hot reload is best-effort.
			s.logger.Warn("failed to start settings watcher", "path", s.settingsPath, "error", err)
		} else {
			s.watcher = w
		}
	}

	s.subs.Add(s.settings.OnChange(func(c config.Change[config.Settings]) {
		s.applySettings(c.New)
	}))
	s.applySettings(s.settings.Get())
	return nil
}

func (s *Service) applySettings(cfg *config.Settings) {
	if !s.customLogger {
		s.level.Set(cfg.Level())
	}
	if s.grammars != nil {
		s.grammars.SetLoadTimeout(cfg.LoadTimeout.Duration)
	}
	if s.registry != nil {
		aliases := make(map[string]string, len(s.baseAliases)+len(cfg.Aliases))
		for k, v := range s.baseAliases {
			aliases[k] = v
		}
		for k, v := range cfg.Aliases {
			aliases[k] = v
		}
		if !maps.Equal(s.registry.Aliases(), aliases) {
			s.registry.SetAliases(aliases)
			// Open documents re-resolve their language on the next edit.
			s.manager.ForgetLanguages()
		}
	}

	// Applies to documents opened from now on.
	s.manager.SetOptions(
		coordinator.WithLogger(s.logger),
		coordinator.WithCancelSuperseded(cfg.CancelSuperseded),
	)
	s.logger.Debug("settings applied",
		"log_level", cfg.LogLevel, "load_timeout", cfg.LoadTimeout, "cancel_superseded", cfg.CancelSuperseded)
}

// ApplyWorkspaceSettings merges editor-supplied settings, for example the
// payload of workspace/didChangeConfiguration, into the current settings.
// Invalid settings are rejected and the current ones stay in place.
func (s *Service) ApplyWorkspaceSettings(raw any) error {
	cfg, err := config.DecodeMap(raw, s.settings.Get())
	if err != nil {
		s.logger.Warn("rejected workspace settings", "error", err)
		return err
	}
	s.settings.Swap(cfg)
	return nil
}
