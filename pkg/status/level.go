package status

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// MaxLevel is the highest level a source reports.
const MaxLevel = 100

// ErrEmptyLevel is returned when a level file holds no value.
var ErrEmptyLevel = errors.New("level file is empty")

// LevelSource reports the current status level in percent.
type LevelSource interface {
	Level() (uint8, error)
}

// StaticLevel is a LevelSource with a fixed value.
type StaticLevel uint8

// Level returns the fixed value, capped at MaxLevel.
func (s StaticLevel) Level() (uint8, error) {
	return clamp(float64(s)), nil
}

// Format selects how a level file is read.
type Format int

const (
	// FormatPercent reads an integer percentage.
	FormatPercent Format = iota

	// FormatMillivolts reads the cell voltage in millivolts, as sampled
	// behind a 1:2 divider, and converts it with BatteryPercent.
	FormatMillivolts
)

// FileLevelSource reads the level from a file on every call, e.g.
// /sys/class/power_supply/BAT0/capacity.
type FileLevelSource struct {
	path   string
	format Format
}

// NewFileLevelSource creates a source reading path in the given format.
func NewFileLevelSource(path string, format Format) *FileLevelSource {
	return &FileLevelSource{path: path, format: format}
}

// Path returns the file being read.
func (s *FileLevelSource) Path() string {
	return s.path
}

// Level reads and converts the file contents.
func (s *FileLevelSource) Level() (uint8, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("read level: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, ErrEmptyLevel
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse level %q: %w", text, err)
	}
	if s.format == FormatMillivolts {
		return BatteryPercent(v), nil
	}
	return clamp(v), nil
}

// BatteryPercent converts a divided cell reading in millivolts to a charge
// percentage using a fitted single-cell LiPo discharge curve.
func BatteryPercent(mv float64) uint8 {
	v := mv * 2 / 1000
	p := 128.7445 + (1.778399-128.7445)/math.Pow(1+math.Pow(v/3.689705, 116.3086), 0.1018804)
	return clamp(p)
}

func clamp(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > MaxLevel:
		return MaxLevel
	}
	return uint8(v)
}
