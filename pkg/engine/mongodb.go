package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dbdock/pkg/config"
	"dbdock/pkg/runner"
)

const defaultMongoImage = "mongo:7"

// mongoSystemDatabases are the databases every deployment carries;
// they are never enumerated for backup.
var mongoSystemDatabases = map[string]bool{
	"admin":  true,
	"config": true,
	"local":  true,
}

// MongoDB backs up with mongodump gzip archives and restores them
// through mongorestore with namespace remapping from the source
// database to the target. MongoDB creates databases lazily, so
// destination preparation only verifies reachability and auth.
type MongoDB struct {
	run runner.Runner
}

// NewMongoDB creates the MongoDB adapter
func NewMongoDB(run runner.Runner) *MongoDB {
	return &MongoDB{run: run}
}

func (m *MongoDB) Kind() Kind             { return KindMongoDB }
func (m *MongoDB) ArtifactExt() string    { return ".archive.gz" }
func (m *MongoDB) GroupedArtifacts() bool { return true }

func (m *MongoDB) Supports(mode Mode) bool { return mode == ModeSingle }

func (m *MongoDB) hostArgs(inst config.Instance) []string {
	return []string{
		"--host", inst.Host,
		"--port", strconv.Itoa(inst.PortOr(27017)),
	}
}

// shellAuthArgs is the auth triplet for mongosh
func (m *MongoDB) shellAuthArgs(inst config.Instance) []string {
	if inst.User == "" {
		return nil
	}
	return []string{
		"-u", inst.User,
		"-p", inst.Password,
		"--authenticationDatabase", m.authDB(inst),
	}
}

// toolAuthArgs is the auth triplet for mongodump and mongorestore
func (m *MongoDB) toolAuthArgs(inst config.Instance) []string {
	if inst.User == "" {
		return nil
	}
	return []string{
		"--username", inst.User,
		"--password", inst.Password,
		"--authenticationDatabase", m.authDB(inst),
	}
}

func (m *MongoDB) authDB(inst config.Instance) string {
	if inst.AuthDB != "" {
		return inst.AuthDB
	}
	return "admin"
}

func (m *MongoDB) EnumerateDatabases(ctx context.Context, inst config.Instance) ([]string, error) {
	argv := append([]string{"mongosh", "--quiet"}, m.hostArgs(inst)...)
	argv = append(argv, "--eval",
		"db.adminCommand('listDatabases').databases.map(function(d) { return d.name }).join('\\n')")
	argv = append(argv, m.shellAuthArgs(inst)...)

	out, err := m.run.Output(ctx, runner.Spec{
		Image: inst.ImageOr(defaultMongoImage),
		Argv:  argv,
	})
	if err != nil {
		return nil, fmt.Errorf("mongodb: failed to enumerate databases on %s: %w", inst.Name, err)
	}

	var databases []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || mongoSystemDatabases[name] {
			continue
		}
		databases = append(databases, name)
	}
	return databases, nil
}

func (m *MongoDB) BackupDatabase(ctx context.Context, inst config.Instance, database, destPath string) error {
	argv := append([]string{"mongodump"}, m.hostArgs(inst)...)
	argv = append(argv, "--db", database, "--archive", "--gzip")
	argv = append(argv, m.toolAuthArgs(inst)...)

	spec := runner.Spec{
		Image: inst.ImageOr(defaultMongoImage),
		Argv:  argv,
	}

	// mongodump gzips the archive itself; store the stream as-is.
	if err := runToFile(ctx, m.run, spec, destPath); err != nil {
		return fmt.Errorf("mongodb: backup of %s on %s failed: %w", database, inst.Name, err)
	}
	return nil
}

func (m *MongoDB) EnsureDestination(ctx context.Context, inst config.Instance, targetDB string) error {
	argv := append([]string{"mongosh", "--quiet"}, m.hostArgs(inst)...)
	argv = append(argv, "--eval", fmt.Sprintf("db.getSiblingDB('%s').runCommand({ ping: 1 })", targetDB))
	argv = append(argv, m.shellAuthArgs(inst)...)

	spec := runner.Spec{
		Image: inst.ImageOr(defaultMongoImage),
		Argv:  argv,
	}

	if err := m.run.Run(ctx, spec); err != nil {
		return fmt.Errorf("mongodb: instance %s is not reachable: %w", inst.Name, err)
	}
	return nil
}

func (m *MongoDB) RestoreDatabase(ctx context.Context, inst config.Instance, req RestoreRequest) error {
	if req.Mode != ModeSingle {
		return fmt.Errorf("mongodb: %w: %s", ErrUnsupportedMode, req.Mode)
	}
	if req.TargetDB == "" {
		return errors.New("mongodb: single mode requires a target database")
	}

	source := req.SourceDB
	if source == "" {
		source = req.TargetDB
	}

	if err := m.EnsureDestination(ctx, inst, req.TargetDB); err != nil {
		return err
	}

	argv := append([]string{"mongorestore"}, m.hostArgs(inst)...)
	argv = append(argv,
		"--archive",
		"--gzip",
		"--nsFrom", source+".*",
		"--nsTo", req.TargetDB+".*",
	)
	argv = append(argv, m.toolAuthArgs(inst)...)

	spec := runner.Spec{
		Image: inst.ImageOr(defaultMongoImage),
		Argv:  argv,
	}

	if err := runFromFile(ctx, m.run, spec, req.ArtifactPath); err != nil {
		return fmt.Errorf("mongodb: restore into %s on %s failed: %w", req.TargetDB, inst.Name, err)
	}
	return nil
}
