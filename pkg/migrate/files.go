package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	slugRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

const (
	markerUp    = "-- +goose Up"
	markerDown  = "-- +goose Down"
	markerBegin = "-- +goose StatementBegin"
	markerEnd   = "-- +goose StatementEnd"
)

// File is one goose SQL migration on disk.
type File struct {
	Version string
	Name    string
	Path    string
}

// ListDir returns the SQL migrations in dir ordered by version. Files that do
// not follow the <version>_<name>.sql layout are an error.
func ListDir(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var files []File
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		m := fileNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected %s_name.sql)", e.Name(), versionLayout)
		}
		files = append(files, File{Version: m[1], Name: m[2], Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir checks every migration in dir and reports all problems at once.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	files, err := ListDir(dir)
	if err != nil {
		return err
	}

	var errs error
	for i, f := range files {
		if i > 0 && files[i-1].Version == f.Version {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s (%s, %s)", f.Version, files[i-1].Name, f.Name))
		}
		if _, err := time.Parse(versionLayout, f.Version); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: version is not a timestamp", filepath.Base(f.Path)))
		}
		body, err := os.ReadFile(f.Path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %q: %w", f.Path, err))
			continue
		}
		errs = multierr.Append(errs, checkBody(filepath.Base(f.Path), string(body)))
	}
	return errs
}

func checkBody(name, body string) error {
	up := strings.Index(body, markerUp)
	down := strings.Index(body, markerDown)
	var errs error
	switch {
	case up < 0:
		errs = multierr.Append(errs, fmt.Errorf("%s: missing %q", name, markerUp))
	case down < 0:
		errs = multierr.Append(errs, fmt.Errorf("%s: missing %q", name, markerDown))
	case down < up:
		errs = multierr.Append(errs, fmt.Errorf("%s: down section precedes up section", name))
	}
	if strings.Count(body, markerBegin) != strings.Count(body, markerEnd) {
		errs = multierr.Append(errs, fmt.Errorf("%s: unbalanced StatementBegin/StatementEnd", name))
	}
	return errs
}

// CreateSQLMigration writes an empty goose migration named after the current
// UTC time and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format(versionLayout)+"_"+slug+".sql")
	body := strings.Join([]string{
		markerUp, markerBegin, "-- " + slug, markerEnd, "",
		markerDown, markerBegin, "-- revert " + slug, markerEnd, "",
	}, "\n")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(body); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}
