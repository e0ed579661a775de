package tasks

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/artpar/enginekit/app"
	"github.com/artpar/enginekit/engine"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newUnit(t *testing.T, name string) (*engine.Engine, string) {
	t.Helper()
	root := t.TempDir()
	e := engine.New(name)
	if err := e.Config().SetRoot(root); err != nil {
		t.Fatal(err)
	}
	return e, root
}

func TestCopyMigrations_RenumbersAndScopes(t *testing.T) {
	e, engineRoot := newUnit(t, "blog")
	writeFile(t, filepath.Join(engineRoot, "db/migrate/001_create_posts.sql"), "CREATE TABLE blog_posts (id INTEGER);")
	writeFile(t, filepath.Join(engineRoot, "db/migrate/002_create_comments.sql"), "CREATE TABLE blog_comments (id INTEGER);")

	hostRoot := t.TempDir()
	writeFile(t, filepath.Join(hostRoot, "db/migrate/20240101000000_init.sql"), "CREATE TABLE users (id INTEGER);")

	copied, err := CopyMigrations(e, hostRoot)
	if err != nil {
		t.Fatalf("CopyMigrations() error = %v", err)
	}
	if len(copied) != 2 {
		t.Fatalf("copied %d files, want 2", len(copied))
	}

	var names []string
	for _, path := range copied {
		names = append(names, filepath.Base(path))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("installed migrations not ordered: %v", names)
	}
	if !strings.HasSuffix(names[0], "_create_posts.blog.sql") {
		t.Errorf("first migration = %q, want *_create_posts.blog.sql", names[0])
	}
	if !strings.HasSuffix(names[1], "_create_comments.blog.sql") {
		t.Errorf("second migration = %q, want *_create_comments.blog.sql", names[1])
	}
	// New versions must sort after the host's existing migration.
	if names[0] <= "20240101000000_init.sql" {
		t.Errorf("version %q does not sort after existing host migration", names[0])
	}
}

func TestCopyMigrations_Idempotent(t *testing.T) {
	e, engineRoot := newUnit(t, "blog")
	writeFile(t, filepath.Join(engineRoot, "db/migrate/001_create_posts.sql"), "CREATE TABLE blog_posts (id INTEGER);")

	hostRoot := t.TempDir()
	first, err := CopyMigrations(e, hostRoot)
	if err != nil {
		t.Fatalf("first CopyMigrations() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first run copied %d files, want 1", len(first))
	}
	second, err := CopyMigrations(e, hostRoot)
	if err != nil {
		t.Fatalf("second CopyMigrations() error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second run copied %d files, want 0", len(second))
	}
}

func TestCopyMigrations_NoMigrateDir(t *testing.T) {
	e, _ := newUnit(t, "bare")
	copied, err := CopyMigrations(e, t.TempDir())
	if err != nil {
		t.Fatalf("CopyMigrations() error = %v", err)
	}
	if copied != nil {
		t.Errorf("copied = %v, want nil", copied)
	}
}

func TestCopyAssets(t *testing.T) {
	e, engineRoot := newUnit(t, "blog")
	writeFile(t, filepath.Join(engineRoot, "public/app.js"), "console.log('blog')")
	writeFile(t, filepath.Join(engineRoot, "public/css/site.css"), "body {}")

	hostRoot := t.TempDir()
	if err := CopyAssets(e, hostRoot); err != nil {
		t.Fatalf("CopyAssets() error = %v", err)
	}
	for _, rel := range []string{"public/blog/app.js", "public/blog/css/site.css"} {
		if _, err := os.Stat(filepath.Join(hostRoot, rel)); err != nil {
			t.Errorf("expected %s to exist: %v", rel, err)
		}
	}
}

func TestDBSeedCommand(t *testing.T) {
	a := app.New(app.Options{Name: "host"})
	if err := a.Config().SetRoot(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	e, engineRoot := newUnit(t, "blog")
	writeFile(t, filepath.Join(engineRoot, "db/seeds.sql"),
		"CREATE TABLE blog_posts (id INTEGER PRIMARY KEY, title TEXT);\nINSERT INTO blog_posts (title) VALUES ('hello');")
	if err := a.Register(e); err != nil {
		t.Fatal(err)
	}

	dsn := filepath.Join(t.TempDir(), "seed.db")
	cmd := Command(a)
	cmd.SetArgs([]string{"db", "seed", "--database", dsn})
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("db seed error = %v", err)
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM blog_posts").Scan(&count); err != nil {
		t.Fatalf("query seeded table: %v", err)
	}
	if count != 1 {
		t.Errorf("seeded rows = %d, want 1", count)
	}
}

func TestInstallCommand_AllUnits(t *testing.T) {
	hostRoot := t.TempDir()
	a := app.New(app.Options{Name: "host"})
	if err := a.Config().SetRoot(hostRoot); err != nil {
		t.Fatal(err)
	}

	blog, blogRoot := newUnit(t, "blog")
	writeFile(t, filepath.Join(blogRoot, "db/migrate/001_create_posts.sql"), "CREATE TABLE blog_posts (id INTEGER);")
	writeFile(t, filepath.Join(blogRoot, "public/app.js"), "console.log('blog')")
	if err := a.Register(blog); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := Command(a)
	cmd.SetArgs([]string{"install"})
	cmd.SetOut(&out)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("install error = %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(hostRoot, "db/migrate/*_create_posts.blog.sql"))
	if len(matches) != 1 {
		t.Errorf("installed migrations = %v, want one create_posts.blog.sql", matches)
	}
	if _, err := os.Stat(filepath.Join(hostRoot, "public/blog/app.js")); err != nil {
		t.Errorf("expected installed asset: %v", err)
	}
	if !strings.Contains(out.String(), "installed ") {
		t.Errorf("output %q does not report installed files", out.String())
	}
}

func TestInstallCommand_UnknownUnit(t *testing.T) {
	a := app.New(app.Options{Name: "host"})
	if err := a.Config().SetRoot(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	cmd := Command(a)
	cmd.SetArgs([]string{"install", "missing"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}
