package app

import (
	"github.com/gangnameyes/docent/internal/catalog"
	"github.com/gangnameyes/docent/internal/config"
	"github.com/gangnameyes/docent/internal/domains/intent"
	"github.com/gangnameyes/docent/internal/domains/ledger"
	"github.com/gangnameyes/docent/internal/domains/narration"
	"github.com/gangnameyes/docent/internal/server"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/backend"
	"github.com/gangnameyes/docent/pkg/io"
	memoryregistry "github.com/gangnameyes/docent/pkg/io/registry/memoryRegistry"
	"github.com/gangnameyes/docent/pkg/io/stt/scribe"
	"github.com/gangnameyes/docent/pkg/io/tts/speech"
)

// App wires the shared components every client session draws from.
type App struct {
	Config     *config.Settings
	Logger     *Logger.Logger
	ServerDeps server.Dependencies
}

func NewApp(cfg *config.Settings, logger *Logger.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}
	a.setupDependencies()
	return a, nil
}

func (a *App) setupDependencies() {
	reg := memoryregistry.New()
	pub := io.New(reg)

	gen := backend.NewGenerateClient(a.Config.Backends.GenerateURL, a.Config.Backends.GenTimeout, a.Logger)
	classify := backend.NewClassifyClient(a.Config.Backends.ClassifyURL, a.Logger)
	narrate := backend.NewNarrateClient(a.Config.Backends.NarrateURL, a.Logger)
	sheet := backend.NewSheetClient(a.Config.Backends.SheetURL, a.Logger)

	a.ServerDeps = server.NewServerDependencies(
		a.Config,
		a.Logger,
		reg,
		&pub,
		gen,
		scribe.NewClient(a.Config.Backends.STTURL, a.Logger),
		speech.NewClient(a.Config.Backends.TTSURL, a.Logger),
		narration.NewNarrator(narrate, a.Config.Backends.NarrateWindow, a.Logger),
		intent.NewRouter(catalog.NewRepository(), classify, a.Logger),
		ledger.NewLedger(sheet, a.Logger),
	)
}

func (a *App) GetServerDependencies() server.Dependencies {
	return a.ServerDeps
}
