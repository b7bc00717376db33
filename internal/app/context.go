package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"jornada/internal/config"
	"jornada/internal/engine"
	"jornada/internal/repo"
)

// Workspace is a resolved config plus its loaded document.
type Workspace struct {
	Dir        string
	ConfigPath string
	DataPath   string
	Config     *config.Config
	Store      *repo.Store
}

// ResolveDocument loads config from configPath (or <workspace>/jornada.yml
// when empty, falling back to defaults if absent) and then the document it
// names. dataOverride, when set, replaces site.data.
func ResolveDocument(workspace, configPath, dataOverride string) (Workspace, error) {
	ws := Workspace{Dir: workspace}
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.FromFile(configPath)
		ws.ConfigPath = configPath
	} else {
		cfg, err = config.LoadOptional(workspace)
		ws.ConfigPath = config.Path(workspace)
	}
	if err != nil {
		return ws, fmt.Errorf("load config: %w", err)
	}
	if dataOverride != "" {
		cfg.Site.Data = dataOverride
	}
	ws.Config = cfg
	ws.DataPath = cfg.DataPath(workspace)
	store, err := repo.LoadFile(ws.DataPath)
	if err != nil {
		return ws, err
	}
	ws.Store = store
	return ws, nil
}

// Engine builds the report engine for the workspace.
func (w Workspace) Engine(logger zerolog.Logger) (engine.Engine, error) {
	eng, err := engine.New(w.Store, w.Config, logger)
	if err != nil {
		return engine.Engine{}, err
	}
	logger.Debug().
		Str("document", w.DataPath).
		Int("episodes", w.Store.Len()).
		Str("policy", eng.Policy.Name()).
		Msg("document loaded")
	return eng, nil
}
