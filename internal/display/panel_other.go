//go:build !linux

package display

import "errors"

// PanelConfig describes the SPI wiring of the status display.
type PanelConfig struct {
	SPIPort  string
	DCPin    string
	ResetPin string
	Width    int
	Height   int
}

// OpenPanel is only supported on Linux.
func OpenPanel(cfg PanelConfig) (Panel, error) {
	return nil, errors.New("spi panel only supported on linux")
}
