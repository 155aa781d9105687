package automation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
)

var (
	// ErrAutomationFailure wraps any failure to carry out an on-screen action.
	ErrAutomationFailure = errors.New("automation failure")
	// ErrFailsafe means the user parked the mouse in the top-left corner to stop the bot.
	ErrFailsafe = errors.New("failsafe triggered")
)

// Point is a screen coordinate in pixels.
type Point struct {
	X int `yaml:"x" toml:"x"`
	Y int `yaml:"y" toml:"y"`
}

// Device performs mouse input.
type Device interface {
	Click(ctx context.Context, p Point) error
	Name() string
}

// LogDevice only logs the clicks it is asked to make.
type LogDevice struct {
	Verbose bool
}

func (d *LogDevice) Name() string { return "log" }

func (d *LogDevice) Click(_ context.Context, p Point) error {
	if d.Verbose {
		log.Printf("[INFO] click (%d, %d)", p.X, p.Y)
	}
	return nil
}

// XdotoolDevice clicks through the xdotool binary on X11.
type XdotoolDevice struct {
	Binary string
}

// NewXdotoolDevice checks that xdotool is on PATH.
func NewXdotoolDevice() (*XdotoolDevice, error) {
	bin, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("%w: xdotool not found: %v", ErrAutomationFailure, err)
	}
	return &XdotoolDevice{Binary: bin}, nil
}

func (d *XdotoolDevice) Name() string { return "xdotool" }

// Click refuses to move the mouse if it is already in the failsafe corner.
func (d *XdotoolDevice) Click(ctx context.Context, p Point) error {
	cur, err := d.location(ctx)
	if err != nil {
		return err
	}
	if cur.X == 0 && cur.Y == 0 {
		return fmt.Errorf("%w: %w", ErrAutomationFailure, ErrFailsafe)
	}
	cmd := exec.CommandContext(ctx, d.Binary, "mousemove", strconv.Itoa(p.X), strconv.Itoa(p.Y), "click", "1")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: xdotool click: %v: %s", ErrAutomationFailure, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d *XdotoolDevice) location(ctx context.Context) (Point, error) {
	out, err := exec.CommandContext(ctx, d.Binary, "getmouselocation", "--shell").Output()
	if err != nil {
		return Point{}, fmt.Errorf("%w: xdotool getmouselocation: %v", ErrAutomationFailure, err)
	}
	return parseLocation(string(out))
}

// parseLocation reads "X=12\nY=34\nSCREEN=0\nWINDOW=..." output.
func parseLocation(out string) (Point, error) {
	var p Point
	var haveX, haveY bool
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		switch k {
		case "X":
			p.X, haveX = n, true
		case "Y":
			p.Y, haveY = n, true
		}
	}
	if !haveX || !haveY {
		return Point{}, fmt.Errorf("%w: unreadable mouse location %q", ErrAutomationFailure, out)
	}
	return p, nil
}

// NewDevice builds a device by name.
func NewDevice(name string, verbose bool) (Device, error) {
	switch name {
	case "", "log":
		return &LogDevice{Verbose: verbose}, nil
	case "xdotool":
		return NewXdotoolDevice()
	default:
		return nil, fmt.Errorf("unknown automation device %q", name)
	}
}
