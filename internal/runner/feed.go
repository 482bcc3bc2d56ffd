package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/OCAP2/drivetrain/internal/dispatcher"
)

// ParseLine splits an input line of the form ":COMMAND: arg arg...". Blank
// lines and lines starting with # yield ok=false.
func ParseLine(line string) (dispatcher.Event, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return dispatcher.Event{}, false, nil
	}
	fields := strings.Fields(line)
	cmd := fields[0]
	if len(cmd) < 2 || !strings.HasPrefix(cmd, ":") || !strings.HasSuffix(cmd, ":") {
		return dispatcher.Event{}, false, fmt.Errorf("malformed command %q", cmd)
	}
	return dispatcher.Event{Command: strings.ToUpper(cmd), Args: fields[1:]}, true, nil
}

// Feed dispatches one event per input line until in is exhausted or ctx is
// done. Bad lines and handler errors are logged and skipped.
func (r *Runner) Feed(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for n := 1; sc.Scan(); n++ {
		if ctx.Err() != nil {
			return nil
		}
		e, ok, err := ParseLine(sc.Text())
		if err != nil {
			r.cfg.Logger.Warn("Skipping input line", "line", n, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if _, err := r.d.Dispatch(e); err != nil {
			r.cfg.Logger.Warn("Input rejected", "line", n, "command", e.Command, "error", err)
		}
	}
	return sc.Err()
}
