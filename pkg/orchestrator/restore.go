package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"dbdock/pkg/config"
	"dbdock/pkg/engine"
	"dbdock/pkg/runner"
)

// ErrInstanceNotFound reports a restore against an instance the
// configuration does not know
var ErrInstanceNotFound = errors.New("instance not found")

// Restorer dispatches a single restore to the right engine adapter
type Restorer struct {
	cfg *config.Config
	run runner.Runner
	log *logrus.Logger
}

// NewRestorer creates a restore orchestrator
func NewRestorer(cfg *config.Config, run runner.Runner) *Restorer {
	return &Restorer{cfg: cfg, run: run, log: logrus.StandardLogger()}
}

// Restore validates the request against the configuration and the
// engine's capabilities, then hands it to the adapter. No destination
// is touched before validation passes.
func (r *Restorer) Restore(ctx context.Context, engineName, instanceName, artifactPath, modeName, sourceDB, targetDB string) error {
	kind, err := engine.ParseKind(engineName)
	if err != nil {
		return err
	}
	mode, err := engine.ParseMode(modeName)
	if err != nil {
		return err
	}

	eng, err := engine.New(kind, r.run)
	if err != nil {
		return err
	}

	inst, ok := r.cfg.FindInstance(string(kind), instanceName)
	if !ok {
		return fmt.Errorf("%w: %s instance %q", ErrInstanceNotFound, kind, instanceName)
	}

	if !eng.Supports(mode) {
		return fmt.Errorf("%w: %s does not support mode %q", engine.ErrUnsupportedMode, kind, mode)
	}

	r.log.Infof("Restoring %s [%s] from %s", kind, instanceName, artifactPath)
	return eng.RestoreDatabase(ctx, inst, engine.RestoreRequest{
		ArtifactPath: artifactPath,
		Mode:         mode,
		SourceDB:     sourceDB,
		TargetDB:     targetDB,
	})
}
