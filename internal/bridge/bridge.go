// Package bridge invokes the external reader utility that is the only way to
// query the proprietary inspection database. The utility's original install
// path is sometimes transiently locked by endpoint-security software, so a
// failed invocation is retried exactly once from a fresh copy of the utility's
// directory relocated into the temp dir. A plain re-invocation in place is
// never attempted.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"axle-upload/internal/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// readCommand is the subcommand understood by the reader utility.
const readCommand = "GetDataFromAccessDatabase"

// Row is one result row: column name to textual value, exactly as the utility
// prints it.
type Row map[string]string

// Runner executes the utility binary. Split out so tests can fake the
// subprocess.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, path string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// Bridge wraps the reader utility. Runner and RelocRoot are exported for
// tests; production code uses the defaults set by New.
type Bridge struct {
	UtilityPath string
	Timeout     time.Duration
	RelocRoot   string
	Runner      Runner

	logger *zap.Logger
}

// New creates a Bridge for the utility at utilityPath. timeout bounds each
// subprocess invocation; the original tool had none and a hung utility hung
// the whole operation.
func New(utilityPath string, timeout time.Duration, logger *zap.Logger) *Bridge {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Bridge{
		UtilityPath: utilityPath,
		Timeout:     timeout,
		RelocRoot:   filepath.Join(os.TempDir(), "axle-reader"),
		Runner:      execRunner{},
		logger:      logger,
	}
}

// Query runs one SQL statement against the database at dbPath and returns the
// decoded rows. The query is passed through verbatim: it follows the
// proprietary engine's dialect (TOP n, #date# literals) and must not be
// rewritten here.
func (b *Bridge) Query(ctx context.Context, dbPath, query string) ([]Row, error) {
	out, err := b.invoke(ctx, b.UtilityPath, dbPath, query)
	if err == nil {
		return parseRows(out)
	}

	b.logger.Warn("reader utility failed, retrying from relocated copy",
		zap.String("utility", b.UtilityPath),
		zap.Error(err))

	relocated, rerr := b.relocate()
	if rerr != nil {
		return nil, &apperrors.BridgeError{Utility: b.UtilityPath, Err: fmt.Errorf("relocation failed: %w", rerr)}
	}
	out, err = b.invoke(ctx, relocated, dbPath, query)
	if err != nil {
		return nil, &apperrors.BridgeError{Utility: b.UtilityPath, Err: err}
	}
	b.logger.Info("relocated reader utility succeeded", zap.String("copy", relocated))
	return parseRows(out)
}

// invoke runs one invocation. A non-empty error stream is a failure even when
// the process exits zero.
func (b *Bridge) invoke(ctx context.Context, utilityPath, dbPath, query string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	stdout, stderr, err := b.Runner.Run(runCtx, utilityPath, readCommand, dbPath, query)
	if err != nil {
		return nil, fmt.Errorf("utility invocation failed: %w", err)
	}
	if trimmed := bytes.TrimSpace(stderr); len(trimmed) > 0 {
		return nil, fmt.Errorf("utility reported error: %s", trimmed)
	}
	return stdout, nil
}

// relocate copies the utility's entire containing directory into a fresh,
// uniquely named subdirectory of RelocRoot. The root itself is wiped first so
// stale copies never accumulate. Returns the path of the relocated binary.
func (b *Bridge) relocate() (string, error) {
	if err := os.RemoveAll(b.RelocRoot); err != nil {
		return "", fmt.Errorf("wiping relocation root %s: %w", b.RelocRoot, err)
	}
	if err := os.MkdirAll(b.RelocRoot, 0o755); err != nil {
		return "", fmt.Errorf("creating relocation root %s: %w", b.RelocRoot, err)
	}

	dest := filepath.Join(b.RelocRoot, uuid.NewString())
	srcDir := filepath.Dir(b.UtilityPath)
	if err := copyDir(srcDir, dest); err != nil {
		return "", fmt.Errorf("copying %s to %s: %w", srcDir, dest, err)
	}
	return filepath.Join(dest, filepath.Base(b.UtilityPath)), nil
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// parseRows decodes the utility's stdout, a JSON array of objects. Values may
// arrive as numbers or booleans; everything is normalized to strings because
// callers parse domain types themselves.
func parseRows(out []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decoding utility output: %w", err)
	}
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		row := make(Row, len(r))
		for k, v := range r {
			switch tv := v.(type) {
			case nil:
				row[k] = ""
			case string:
				row[k] = tv
			case float64:
				row[k] = trimFloat(tv)
			default:
				row[k] = fmt.Sprintf("%v", tv)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}
