package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/OCAP2/drivetrain/internal/util"
)

// ErrBadArgs is wrapped by every error caused by malformed command arguments.
var ErrBadArgs = errors.New("bad arguments")

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Scripted hosts often have a single number type, so counts may arrive as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// parseFinite parses a float and rejects NaN and infinities.
func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

// Parser provides pure []string -> typed input conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// clean normalizes raw args and checks that at least n are present and that
// the car id is not empty.
func (p *Parser) clean(data []string, n int, what string) ([]string, error) {
	if len(data) < n {
		return nil, fmt.Errorf("%w: %s needs %d args, got %d", ErrBadArgs, what, n, len(data))
	}
	args := util.CleanArgs(data)
	if args[0] == "" {
		return nil, fmt.Errorf("%w: %s: empty car id", ErrBadArgs, what)
	}
	if len(args) > n {
		p.logger.Debug("ignoring extra args", "command", what, "extra", len(args)-n)
	}
	return args, nil
}
