package startup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
)

func TestWriteServiceUnit(t *testing.T) {
	unitPath := filepath.Join(t.TempDir(), "lightbar-controller.service")
	cfg := config.Service{
		UnitPath: unitPath,
		User:     "lightbar",
		WorkDir:  "/opt/lightbar-controller",
	}

	require.NoError(t, WriteServiceUnit(cfg, "/opt/lightbar-controller/config.yaml"))

	data, err := os.ReadFile(unitPath)
	require.NoError(t, err)
	unit := string(data)

	assert.Contains(t, unit, "User=lightbar")
	assert.Contains(t, unit, "WorkingDirectory=/opt/lightbar-controller")
	assert.Contains(t, unit, "ExecStart=/opt/lightbar-controller/lightbar-controller -config /opt/lightbar-controller/config.yaml")
	assert.Contains(t, unit, "Restart=on-failure")
	assert.Contains(t, unit, "WantedBy=multi-user.target")
}

func TestWriteServiceUnitBadPath(t *testing.T) {
	cfg := config.Service{
		UnitPath: filepath.Join(t.TempDir(), "missing", "unit.service"),
		User:     "root",
		WorkDir:  "/opt/lightbar-controller",
	}

	err := WriteServiceUnit(cfg, "config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write service unit")
}
