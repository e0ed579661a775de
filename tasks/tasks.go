// Package tasks exposes the per-unit task surface: migration and asset
// installation plus seed loading, parameterized by each unit's derived name
// and root path. The composition core only supplies those two facts; the
// copying and SQL execution live here.
package tasks

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/artpar/enginekit/engine"
)

// migrationName captures the version prefix and descriptive rest of a
// migration filename, e.g. "20240101010101_create_posts.sql".
var migrationName = regexp.MustCompile(`^(\d+)_(.+)$`)

// CopyMigrations installs a unit's db/migrate files into the host's
// db/migrate directory, renumbered past every existing host migration and
// suffixed with the unit's engine name so re-running is idempotent.
// Returns the paths written.
func CopyMigrations(e *engine.Engine, hostRoot string) ([]string, error) {
	srcDirs := e.Config().Paths().Existent("db/migrate")
	if len(srcDirs) == 0 {
		return nil, nil
	}
	dstDir := filepath.Join(hostRoot, "db", "migrate")
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dstDir, err)
	}

	installed, latest, err := scanHostMigrations(dstDir)
	if err != nil {
		return nil, err
	}

	version := nextVersion(latest)
	var copied []string
	for _, srcDir := range srcDirs {
		files, err := filepath.Glob(filepath.Join(srcDir, "*.sql"))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", srcDir, err)
		}
		sort.Strings(files)
		for _, src := range files {
			rest := migrationRest(filepath.Base(src))
			scoped := fmt.Sprintf("%s.%s.sql", rest, e.Name())
			if installed[scoped] {
				continue
			}
			dst := filepath.Join(dstDir, fmt.Sprintf("%d_%s", version, scoped))
			if err := copyFile(src, dst); err != nil {
				return nil, err
			}
			copied = append(copied, dst)
			version++
		}
	}
	return copied, nil
}

// scanHostMigrations returns the scoped names already installed and the
// highest version in use.
func scanHostMigrations(dir string) (map[string]bool, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", dir, err)
	}
	installed := make(map[string]bool)
	var latest int64
	for _, entry := range entries {
		m := migrationName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		installed[m[2]] = true
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil && v > latest {
			latest = v
		}
	}
	return installed, latest, nil
}

func nextVersion(latest int64) int64 {
	now, _ := strconv.ParseInt(time.Now().UTC().Format("20060102150405"), 10, 64)
	if latest >= now {
		return latest + 1
	}
	return now
}

// migrationRest strips a numeric version prefix, keeping the descriptive
// part including the extension's base name.
func migrationRest(base string) string {
	name := base[:len(base)-len(filepath.Ext(base))]
	if m := migrationName.FindStringSubmatch(name); m != nil {
		return m[2]
	}
	return name
}

// CopyAssets installs a unit's public/ tree under the host's
// public/<engine_name>/ directory, overwriting existing files.
func CopyAssets(e *engine.Engine, hostRoot string) error {
	srcDirs := e.Config().Paths().Existent("public")
	if len(srcDirs) == 0 {
		return nil
	}
	dstRoot := filepath.Join(hostRoot, "public", e.Name())
	for _, srcDir := range srcDirs {
		err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(srcDir, path)
			if err != nil {
				return err
			}
			dst := filepath.Join(dstRoot, rel)
			if d.IsDir() {
				return os.MkdirAll(dst, 0o755)
			}
			return copyFile(path, dst)
		})
		if err != nil {
			return fmt.Errorf("engine %s: copy assets: %w", e.Name(), err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	return out.Close()
}
