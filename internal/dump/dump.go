package dump

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/rpattn/annex-migrate/internal/db"
)

// Run writes a custom-format pg_dump archive of the target database to path.
// The archive is the cutover artifact: the annex application restores from it
// rather than re-running the migration.
func Run(ctx context.Context, config db.Config, path string) error {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"--format=custom",
		"--no-owner",
		"--host", config.Host,
		"--port", strconv.Itoa(config.Port),
		"--username", config.User,
		"--dbname", config.DBName,
		"--file", path,
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+config.Password)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("pg_dump: %w: %s", err, stderr.String())
		}
		return fmt.Errorf("pg_dump: %w", err)
	}
	return nil
}
