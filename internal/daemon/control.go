package daemon

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/flickpay/flickpos/internal/ipc"
	"github.com/flickpay/flickpos/internal/kiosk"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/topology"
)

// ErrNoLogFile is returned by READ_LOG when file logging is disabled.
var ErrNoLogFile = errors.New("file logging is disabled")

// Caller runs a function on the event loop and waits for it.
type Caller interface {
	Poster
	Call(ctx context.Context, fn func()) error
}

// Kiosk is the part of kiosk.Manager the control socket drives.
type Kiosk interface {
	Status() kiosk.Status
	ReloadAll()
	Rebuild() error
	CloseAll()
	OpenSettings()
}

// LogFile is the readable application log.
type LogFile interface {
	Path() string
	Read() (string, error)
}

// Control implements ipc.Handler on top of the kiosk. Every kiosk call is
// made on the loop.
type Control struct {
	Loop          Caller
	Kiosk         Kiosk
	DisplaySource kiosk.DisplaySource
	// Log and Updates are optional.
	Log     LogFile
	Updates kiosk.Updater
	Browser string
	Version string
	Started time.Time
}

var _ ipc.Handler = (*Control)(nil)

func (c *Control) Status(ctx context.Context) (ipc.StatusData, error) {
	var st kiosk.Status
	if err := c.Loop.Call(ctx, func() { st = c.Kiosk.Status() }); err != nil {
		return ipc.StatusData{}, err
	}
	data := ipc.StatusData{
		Version:       c.Version,
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(c.Started).Seconds()),
		Browser:       c.Browser,
		Kiosk:         st,
	}
	if c.Updates != nil {
		data.UpdateStaged = c.Updates.Staged()
	}
	return data, nil
}

func (c *Control) Reload(ctx context.Context) error {
	return c.Loop.Call(ctx, c.Kiosk.ReloadAll)
}

func (c *Control) Rebuild(ctx context.Context) error {
	var err error
	if callErr := c.Loop.Call(ctx, func() { err = c.Kiosk.Rebuild() }); callErr != nil {
		return callErr
	}
	return err
}

// Quit only queues the shutdown so the reply goes out before the socket
// closes.
func (c *Control) Quit(context.Context) error {
	c.Loop.Post(c.Kiosk.CloseAll)
	return nil
}

func (c *Control) OpenSettings(ctx context.Context) error {
	return c.Loop.Call(ctx, c.Kiosk.OpenSettings)
}

func (c *Control) Displays(ctx context.Context) (ipc.DisplaysData, error) {
	var (
		displays []platform.Display
		err      error
	)
	if callErr := c.Loop.Call(ctx, func() { displays, err = c.DisplaySource.Displays() }); callErr != nil {
		return ipc.DisplaysData{}, callErr
	}
	if err != nil {
		return ipc.DisplaysData{}, err
	}
	return DescribeDisplays(displays), nil
}

func (c *Control) ReadLog(context.Context) (ipc.LogData, error) {
	if c.Log == nil {
		return ipc.LogData{}, ErrNoLogFile
	}
	text, err := c.Log.Read()
	if err != nil {
		return ipc.LogData{}, err
	}
	return ipc.LogData{Path: c.Log.Path(), Text: text}, nil
}

// DescribeDisplays tags each display with the role topology gives it.
func DescribeDisplays(displays []platform.Display) ipc.DisplaysData {
	out := ipc.DisplaysData{Displays: make([]ipc.DisplayInfo, 0, len(displays))}
	roles, err := topology.Resolve(displays)
	for _, d := range displays {
		info := ipc.DisplayInfo{
			ID:      d.ID,
			Name:    d.Name,
			X:       d.Bounds.X,
			Y:       d.Bounds.Y,
			Width:   d.Bounds.Width,
			Height:  d.Bounds.Height,
			Primary: d.Primary,
		}
		if err == nil {
			switch {
			case d.ID == roles.Operator.ID:
				info.Role = "operator"
			case roles.Customer != nil && d.ID == roles.Customer.ID:
				info.Role = "customer"
			}
		}
		out.Displays = append(out.Displays, info)
	}
	return out
}
