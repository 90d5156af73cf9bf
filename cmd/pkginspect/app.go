package main

import (
	"fmt"
	"io"

	"github.com/ochairo/pkginspect/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/pkginspect/internal/domain-orchestrators"
	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/repositories"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/pkginspect/internal/domain/services"
	"github.com/ochairo/pkginspect/internal/external-adapters/console"
	"github.com/ochairo/pkginspect/internal/external-adapters/yaml"
)

// app holds the wired dependencies of one CLI invocation
type app struct {
	cfg          *entities.Config
	logger       interfaces.Logger
	configParser *yaml.ConfigParser
	fetcher      *gateways.Fetcher
	policy       services.PolicyService
	orchestrator *orchestrators.RunOrchestrator
}

// newLogger builds the console logger for the global flags
func newLogger(opts *globalOptions, stderr io.Writer) (*console.Logger, error) {
	level, err := console.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, usageError("%v", err)
	}
	if opts.verbose {
		level = console.LevelDebug
	}
	return console.NewLogger(stderr, level), nil
}

// loadConfig reads the configuration file and applies flag overrides
func loadConfig(opts *globalOptions, repo repositories.ConfigRepository) (*entities.Config, error) {
	cfg, err := repo.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.workDir != "" {
		cfg.WorkDir = opts.workDir
	}
	return cfg, nil
}

// newApp wires every adapter, service and orchestrator
func newApp(opts *globalOptions, stderr io.Writer, keepWorkDir bool) (*app, error) {
	logger, err := newLogger(opts, stderr)
	if err != nil {
		return nil, err
	}

	configParser := yaml.NewConfigParser(logger)
	cfg, err := loadConfig(opts, configParser)
	if err != nil {
		return nil, err
	}

	verifier, err := gateways.NewArtifactVerifierFromKeyring(cfg.Fetch.Keyring)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyring: %w", err)
	}

	reader := yaml.NewHeaderReader()
	fetcher := gateways.NewFetcher(cfg.Fetch, verifier, logger)
	extractor := gateways.NewArchiveExtractor(logger)
	preparer := gateways.NewSourcePreparer(cfg.PrepCommand, gateways.NewCommandRunner(), extractor, reader, logger)
	scanner := gateways.NewContentScanner(cfg.Unicode.Exclude, cfg.Unicode.ExcludedMimeTypes, logger)

	policy := domainservices.NewPolicyService()
	scriptlets := domainservices.NewScriptletService(reader)

	orch := orchestrators.NewRunOrchestrator(
		yaml.NewPeerRepository(logger),
		fetcher,
		extractor,
		policy,
		orchestrators.NewInspectionDriver(scriptlets),
		[]services.Inspection{
			orchestrators.NewScriptletInspection(scriptlets),
			orchestrators.NewUnicodeInspection(preparer, scanner),
		},
		logger,
		orchestrators.RunOrchestratorConfig{
			Verbose:     opts.verbose,
			KeepWorkDir: keepWorkDir,
		},
	)

	return &app{
		cfg:          cfg,
		logger:       logger,
		configParser: configParser,
		fetcher:      fetcher,
		policy:       policy,
		orchestrator: orch,
	}, nil
}
