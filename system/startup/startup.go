// Package startup installs the controller as a systemd service so it comes
// back on its own after power loss, which is the normal way this device
// ends a day.
package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
)

// WriteServiceUnit renders and writes the systemd unit. The unit restarts
// the controller on failure; a clean stop stays stopped.
func WriteServiceUnit(cfg config.Service, configPath string) error {
	binPath := filepath.Join(cfg.WorkDir, "lightbar-controller")

	unit := fmt.Sprintf(`[Unit]
Description=LED light bar controller
After=multi-user.target

[Service]
Type=simple
User=%s
WorkingDirectory=%s
ExecStart=%s -config %s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, cfg.User, cfg.WorkDir, binPath, configPath)

	if err := os.WriteFile(cfg.UnitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("write service unit %s: %w", cfg.UnitPath, err)
	}
	return nil
}

// EnableService reloads systemd and enables the unit for the next boot.
func EnableService(cfg config.Service) error {
	unitName := strings.TrimSuffix(filepath.Base(cfg.UnitPath), ".service")

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", unitName},
	} {
		cmd := exec.Command("systemctl", args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
		}
	}
	return nil
}
