package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialPort is a UART opened through the OS serial driver.
type SerialPort struct {
	serial.Port
	name string
}

// OpenSerial opens the named device at baud, 8N1.
func OpenSerial(name string, baud int) (*SerialPort, error) {
	if baud <= 0 {
		return nil, ErrInvalidBaud
	}
	p, err := serial.Open(name, serialMode(baud))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &SerialPort{Port: p, name: name}, nil
}

// SerialOpener returns an Opener for the named device.
func SerialOpener(name string) Opener {
	return func(baud int) (Port, error) {
		return OpenSerial(name, baud)
	}
}

// Name returns the device path.
func (p *SerialPort) Name() string {
	return p.name
}

// SetBaudRate changes the line speed without closing the port.
func (p *SerialPort) SetBaudRate(baud int) error {
	if baud <= 0 {
		return ErrInvalidBaud
	}
	if err := p.Port.SetMode(serialMode(baud)); err != nil {
		return fmt.Errorf("set baud %s: %w", p.name, err)
	}
	return nil
}

func serialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// ListSerialPorts returns the serial devices present on the system.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
