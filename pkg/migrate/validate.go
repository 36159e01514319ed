package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

var migrationName = regexp.MustCompile(`^(\d{14})_([a-z0-9]+(?:_[a-z0-9]+)*)\.sql$`)

// Validate checks every .sql file in migrations: filename shape, unique
// versions, both goose sections present, and balanced statement blocks.
func Validate(migrations fs.FS) error {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	versions := make(map[string]string, len(entries))
	checked := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()

		match := migrationName.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("migration %q must be named YYYYMMDDHHMMSS_snake_case.sql", name)
		}
		if other, dup := versions[match[1]]; dup {
			return fmt.Errorf("migrations %q and %q share version %s", other, name, match[1])
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("read migration %q: %w", name, err)
		}
		if err := checkAnnotations(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
		checked++
	}

	if checked == 0 {
		return fmt.Errorf("no migrations found")
	}
	return nil
}

// ValidateDir runs Validate against the migration source resolved for dir.
func ValidateDir(dir string) error {
	return Validate(Source(dir))
}

func checkAnnotations(body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("missing -- +goose Up")
	case down < 0:
		return fmt.Errorf("missing -- +goose Down")
	case down < up:
		return fmt.Errorf("-- +goose Down appears before -- +goose Up")
	}

	open := 0
	for _, line := range strings.Split(body, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose StatementBegin":
			if open > 0 {
				return fmt.Errorf("nested StatementBegin")
			}
			open++
		case "-- +goose StatementEnd":
			if open == 0 {
				return fmt.Errorf("StatementEnd without StatementBegin")
			}
			open--
		}
	}
	if open != 0 {
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}
