package cmd

import (
	"docrag/internal/tui"
)

func runTUI() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return tui.Run(tui.Config{App: cfg})
}
