package runner

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestCommandHostExec(t *testing.T) {
	d := NewDocker()
	spec := Spec{
		Argv: []string{"sqlite3", "/data/app.db", ".dump"},
	}

	cmd := d.command(context.Background(), spec)
	if !strings.HasSuffix(cmd.Path, "sqlite3") {
		t.Errorf("expected host sqlite3 invocation, got path %q", cmd.Path)
	}
	if !reflect.DeepEqual(cmd.Args, []string{"sqlite3", "/data/app.db", ".dump"}) {
		t.Errorf("unexpected argv: %v", cmd.Args)
	}
}

func TestCommandDockerRun(t *testing.T) {
	d := NewDocker()
	spec := Spec{
		Image: "mysql:8",
		Argv:  []string{"mysqldump", "-h", "db.example.com", "shop"},
	}

	cmd := d.command(context.Background(), spec)
	want := []string{"docker", "run", "--rm", "mysql:8", "mysqldump", "-h", "db.example.com", "shop"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("argv mismatch:\n got %v\nwant %v", cmd.Args, want)
	}
}

func TestCommandDockerRunWithStdin(t *testing.T) {
	d := NewDocker()
	spec := Spec{
		Image: "mysql:8",
		Argv:  []string{"mysql", "shop_copy"},
		Stdin: strings.NewReader("CREATE TABLE t (id INT);"),
	}

	cmd := d.command(context.Background(), spec)
	want := []string{"docker", "run", "--rm", "-i", "mysql:8", "mysql", "shop_copy"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("argv mismatch:\n got %v\nwant %v", cmd.Args, want)
	}
}

func TestCommandDockerRunEnvAndBinds(t *testing.T) {
	d := NewDocker()
	spec := Spec{
		Image: "postgres:16",
		Argv:  []string{"pg_dump", "-Fc"},
		Env: map[string]string{
			"PGPASSWORD": "secret",
			"PGAPPNAME":  "backup",
		},
		Binds: []string{"/backups/pg:/backup"},
	}

	cmd := d.command(context.Background(), spec)
	want := []string{
		"docker", "run", "--rm",
		"-e", "PGAPPNAME=backup",
		"-e", "PGPASSWORD=secret",
		"-v", "/backups/pg:/backup",
		"postgres:16", "pg_dump", "-Fc",
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("argv mismatch:\n got %v\nwant %v", cmd.Args, want)
	}
}

func TestEnvListStableOrder(t *testing.T) {
	env := map[string]string{"B": "2", "A": "1", "C": "3"}
	want := []string{"A=1", "B=2", "C=3"}
	for i := 0; i < 10; i++ {
		if got := envList(env); !reflect.DeepEqual(got, want) {
			t.Fatalf("unstable env order: %v", got)
		}
	}
}

func TestSpecTool(t *testing.T) {
	if got := (Spec{Argv: []string{"pg_restore", "-d", "x"}}).Tool(); got != "pg_restore" {
		t.Errorf("Tool() = %q, want pg_restore", got)
	}
	if got := (Spec{}).Tool(); got != "" {
		t.Errorf("Tool() on empty argv = %q, want empty", got)
	}
}

func TestExitErrorFormat(t *testing.T) {
	err := &ExitError{Tool: "mysqldump", Code: 2, Stderr: "Access denied"}
	want := "mysqldump exited with code 2: Access denied"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &ExitError{Tool: "psql", Code: 1}
	if bare.Error() != "psql exited with code 1" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestRunRealProcessCapturesStderrAndCode(t *testing.T) {
	d := NewDocker()
	err := d.Run(context.Background(), Spec{
		Argv: []string{"sh", "-c", "echo boom >&2; exit 3"},
	})

	exitErr, ok := err.(*ExitError)
	if !ok {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 3 {
		t.Errorf("Code = %d, want 3", exitErr.Code)
	}
	if exitErr.Stderr != "boom" {
		t.Errorf("Stderr = %q, want boom", exitErr.Stderr)
	}
	if exitErr.Tool != "sh" {
		t.Errorf("Tool = %q, want sh", exitErr.Tool)
	}
}

func TestOutputRealProcess(t *testing.T) {
	d := NewDocker()
	out, err := d.Output(context.Background(), Spec{
		Argv: []string{"sh", "-c", "printf 'one\\ntwo\\n'"},
	})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if out != "one\ntwo\n" {
		t.Errorf("Output = %q", out)
	}
}
