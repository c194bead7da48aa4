package window

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/xpic/internal/capture"
)

// ID is a window id as given on the command line. Text keeps the operator's
// spelling so synthesized file names match what was typed.
type ID struct {
	Handle capture.Handle
	Text   string
}

// ParseID parses a window id in decimal, 0x-prefixed hexadecimal or
// 0-prefixed octal.
func ParseID(arg string) (ID, error) {
	text := strings.TrimSpace(arg)
	if strings.Contains(text, "_") || hasPrefixFold(text, "0b") || hasPrefixFold(text, "0o") {
		return ID{}, fmt.Errorf("bad argument %s: not a decimal, 0x hexadecimal or 0 octal number", arg)
	}
	v, err := strconv.ParseUint(text, 0, 32)
	if err != nil {
		return ID{}, fmt.Errorf("bad argument %s: %w", arg, err)
	}
	if v == 0 {
		return ID{}, fmt.Errorf("bad argument %s: window id 0 is not a window", arg)
	}
	return ID{Handle: capture.Handle(v), Text: text}, nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// ParseIDs parses every argument, failing on the first malformed one.
func ParseIDs(args []string) ([]ID, error) {
	ids := make([]ID, 0, len(args))
	for _, arg := range args {
		id, err := ParseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
