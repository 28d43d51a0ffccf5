package scheduler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ETFScope/internal/catalog"
	"ETFScope/internal/model"
)

// Command is a parsed bot command. Zero Lookback or a negative Principal
// mean the caller's default applies.
type Command struct {
	Name      string
	Symbols   []string
	Lookback  model.Lookback
	Principal float64
}

var symbolArgs = map[string]int{
	"/etf":     1,
	"/compare": 2,
	"/list":    0,
	"/help":    0,
	"/start":   0,
}

// ParseCommand splits "/etf SPY 1y 5000" style input. Optional arguments
// after the symbols may come in any order.
func ParseCommand(text string) (Command, error) {
	cmd := Command{Principal: -1}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return cmd, fmt.Errorf("empty command")
	}

	name := strings.ToLower(fields[0])
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}
	want, ok := symbolArgs[name]
	if !ok {
		return cmd, fmt.Errorf("unknown command %q", fields[0])
	}
	cmd.Name = name

	args := fields[1:]
	if len(args) < want {
		return cmd, fmt.Errorf("%s needs %d symbol(s)", name, want)
	}
	for _, a := range args[:want] {
		cmd.Symbols = append(cmd.Symbols, catalog.NormalizeSymbol(a))
	}

	for _, a := range args[want:] {
		if lb, err := model.ParseLookback(a); err == nil {
			if cmd.Lookback != "" {
				return cmd, fmt.Errorf("period given twice")
			}
			cmd.Lookback = lb
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimPrefix(a, "$"), 64)
		if err != nil || amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return cmd, fmt.Errorf("unrecognized argument %q", a)
		}
		if cmd.Principal >= 0 {
			return cmd, fmt.Errorf("amount given twice")
		}
		cmd.Principal = amount
	}
	return cmd, nil
}
