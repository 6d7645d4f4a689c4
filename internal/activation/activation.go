// Package activation gates automatic uploads behind a license check: a code
// derived from the machine's hardware serial must match the configured
// activation code. Manual uploads are deliberately not gated.
package activation

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// codeFormat is mixed into the hash so the expected code is not a bare hash
// of the serial. Changing it invalidates every issued code.
const codeFormat = "AXU/%s/UT1"

// SerialFunc reads the hardware serial. Overridable in tests.
type SerialFunc func() (string, error)

// Gate answers IsActivated. The hardware serial cannot change without a
// reboot, so it is read once and cached for the process lifetime.
type Gate struct {
	serialFn SerialFunc
	logger   *zap.Logger

	once      sync.Once
	serial    string
	serialErr error

	mu   sync.RWMutex
	code string
}

// New creates a Gate with the configured activation code.
func New(code string, logger *zap.Logger) *Gate {
	return &Gate{serialFn: hardwareSerial, code: code, logger: logger}
}

// NewWithSerialFunc is New with an injected serial reader, for tests.
func NewWithSerialFunc(code string, fn SerialFunc, logger *zap.Logger) *Gate {
	return &Gate{serialFn: fn, code: code, logger: logger}
}

// Serial returns the cached hardware serial.
func (g *Gate) Serial() (string, error) {
	g.once.Do(func() {
		g.serial, g.serialErr = g.serialFn()
		if g.serialErr != nil {
			g.logger.Error("failed to read hardware serial", zap.Error(g.serialErr))
		}
	})
	return g.serial, g.serialErr
}

// SetCode replaces the activation code for the rest of the process lifetime.
func (g *Gate) SetCode(code string) {
	g.mu.Lock()
	g.code = code
	g.mu.Unlock()
}

// IsActivated reports whether the configured code matches the code expected
// for this machine. Comparison is exact and case-sensitive.
func (g *Gate) IsActivated() bool {
	serial, err := g.Serial()
	if err != nil || serial == "" {
		return false
	}
	g.mu.RLock()
	code := g.code
	g.mu.RUnlock()
	return code != "" && code == ExpectedCode(serial)
}

// ExpectedCode derives the activation code for a hardware serial.
func ExpectedCode(serial string) string {
	sum := md5.Sum([]byte(fmt.Sprintf(codeFormat, serial)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// hardwareSerial queries the baseboard serial. Requires elevated rights on
// some systems; failure is reported, not fatal, and simply leaves the
// installation unlicensed.
func hardwareSerial() (string, error) {
	if runtime.GOOS == "windows" {
		out, err := exec.Command("wmic", "baseboard", "get", "serialnumber").Output()
		if err != nil {
			return "", fmt.Errorf("wmic query failed: %w", err)
		}
		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		if len(lines) < 2 {
			return "", fmt.Errorf("unexpected wmic output: %q", string(out))
		}
		serial := strings.TrimSpace(lines[len(lines)-1])
		if serial == "" {
			return "", fmt.Errorf("empty baseboard serial")
		}
		return serial, nil
	}

	for _, path := range []string{"/sys/class/dmi/id/board_serial", "/sys/class/dmi/id/product_uuid"} {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if serial := strings.TrimSpace(string(raw)); serial != "" {
			return serial, nil
		}
	}
	return "", fmt.Errorf("no hardware serial source available")
}
