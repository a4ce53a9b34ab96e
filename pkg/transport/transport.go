// Package transport opens the byte stream to the MCU.
package transport

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/tarm/serial"
	"golang.org/x/net/websocket"

	"github.com/robotalks/heating.go/pkg/mcu"
	"github.com/robotalks/heating.go/pkg/mcu/sim"
)

// DefaultBaud is the baud rate of the MCU UART.
const DefaultBaud = 9600

// DialTimeout limits connecting network transports.
var DialTimeout = 5 * time.Second

// Target is a parsed device URL.
//   /dev/ttyUSB0
//   serial:///dev/ttyUSB0?baud=9600
//   tcp://host:port
//   ws://host/path
//   sim:?tick=true
type Target struct {
	Scheme string
	Path   string
	Host   string
	Baud   int
	Tick   bool
	URL    string
}

// Parse parses a device URL. A plain path is a serial device.
func Parse(deviceURL string) (*Target, error) {
	if deviceURL == "" {
		return nil, fmt.Errorf("device not specified")
	}
	if strings.HasPrefix(deviceURL, "/") || !strings.Contains(deviceURL, ":") {
		return &Target{Scheme: "serial", Path: deviceURL, Baud: DefaultBaud, URL: deviceURL}, nil
	}
	u, err := url.Parse(deviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid device URL: %v", err)
	}
	t := &Target{Scheme: u.Scheme, Host: u.Host, Path: u.Path, Baud: DefaultBaud, URL: deviceURL}
	switch u.Scheme {
	case "serial":
		if t.Path == "" {
			t.Path = u.Opaque
		}
		if val := u.Query().Get("baud"); val != "" {
			if t.Baud, err = strconv.Atoi(val); err != nil || t.Baud <= 0 {
				return nil, fmt.Errorf("invalid baud rate: %q", val)
			}
		}
	case "tcp", "ws", "wss":
		if t.Host == "" {
			return nil, fmt.Errorf("host required in %q", deviceURL)
		}
	case "sim":
		t.Tick = u.Query().Get("tick") == "true"
	default:
		return nil, fmt.Errorf("unknown device URL scheme: %q", u.Scheme)
	}
	return t, nil
}

// SerialConfig returns the port settings of the MCU link: 8N1 without
// flow control and without read timeout, so reads block until a byte
// arrives. The port is opened in raw mode, bytes pass through unmodified.
func SerialConfig(name string, baud int) *serial.Config {
	return &serial.Config{
		Name:     name,
		Baud:     baud,
		Size:     8,
		Parity:   serial.ParityNone,
		StopBits: serial.Stop1,
	}
}

// Open opens the stream described by the target.
func (t *Target) Open() (io.ReadWriteCloser, error) {
	s, err := t.open()
	if err != nil {
		return nil, &mcu.TransportError{Op: "open " + t.URL, Err: err}
	}
	glog.V(1).Infof("opened %s", t.URL)
	return s, nil
}

func (t *Target) open() (io.ReadWriteCloser, error) {
	switch t.Scheme {
	case "serial":
		return serial.OpenPort(SerialConfig(t.Path, t.Baud))
	case "tcp":
		return net.DialTimeout("tcp", t.Host, DialTimeout)
	case "ws", "wss":
		origin := "http://localhost/"
		if t.Scheme == "wss" {
			origin = "https://localhost/"
		}
		conn, err := websocket.Dial(t.URL, "", origin)
		if err != nil {
			return nil, err
		}
		conn.PayloadType = websocket.BinaryFrame
		return conn, nil
	case "sim":
		dev := sim.NewDevice()
		now := time.Now()
		dev.SetClock(mcu.DeviceTime{Day: mcu.WeekdayOf(now.Weekday()), Minute: mcu.TimeOfDayOf(now)})
		return dev.Pipe(t.Tick), nil
	}
	return nil, fmt.Errorf("unsupported scheme %q", t.Scheme)
}

// Open parses the device URL and opens it.
func Open(deviceURL string) (io.ReadWriteCloser, error) {
	t, err := Parse(deviceURL)
	if err != nil {
		return nil, &mcu.TransportError{Op: "open", Err: err}
	}
	return t.Open()
}

// Dial opens the device and creates a client on it.
func Dial(deviceURL string) (*mcu.Client, error) {
	s, err := Open(deviceURL)
	if err != nil {
		return nil, err
	}
	return mcu.NewClient(s), nil
}
