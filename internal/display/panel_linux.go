//go:build linux

package display

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// PanelConfig describes the SPI wiring of the status display.
type PanelConfig struct {
	SPIPort  string // "" = first available port
	DCPin    string // e.g. GPIO24
	ResetPin string // e.g. GPIO25, "" = not wired
	Width    int
	Height   int
}

// ssdPanel closes the SPI port along with the controller.
type ssdPanel struct {
	*ssd1306.Dev
	port spi.PortCloser
}

func (p *ssdPanel) Halt() error {
	err := p.Dev.Halt()
	if cerr := p.port.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return err
}

// OpenPanel opens an SSD1306-compatible OLED over SPI.
func OpenPanel(cfg PanelConfig) (Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", cfg.SPIPort, err)
	}

	dc := gpioreg.ByName(cfg.DCPin)
	if dc == nil {
		port.Close()
		return nil, fmt.Errorf("dc pin %s not found", cfg.DCPin)
	}

	if cfg.ResetPin != "" {
		rst := gpioreg.ByName(cfg.ResetPin)
		if rst == nil {
			port.Close()
			return nil, fmt.Errorf("reset pin %s not found", cfg.ResetPin)
		}
		if err := resetPanel(rst); err != nil {
			port.Close()
			return nil, err
		}
	}

	opts := ssd1306.DefaultOpts
	opts.W = cfg.Width
	opts.H = cfg.Height
	dev, err := ssd1306.NewSPI(port, dc, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("init ssd1306: %w", err)
	}
	return &ssdPanel{Dev: dev, port: port}, nil
}

func resetPanel(rst gpio.PinOut) error {
	if err := rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("reset panel: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := rst.Out(gpio.High); err != nil {
		return fmt.Errorf("reset panel: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}
