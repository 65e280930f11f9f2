package match

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/randomizedcoder/go-match-bench/internal/logwatch"
)

// Classify reads the player's log and decides the winner from its last END line.
func Classify(path string) Outcome {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NoLog
		}
		// Unreadable counts as no END line seen.
		return NoEnd
	}

	line, ok := logwatch.LastLineWithPrefix(string(data), logwatch.EndMarker)
	if !ok {
		return NoEnd
	}
	return classifyEndLine(line)
}

func classifyEndLine(line string) Outcome {
	switch {
	case strings.Contains(line, " win."):
		return Player
	case strings.Contains(line, " lose."):
		return Opponent
	case strings.Contains(strings.ToLower(line), "draw"):
		return Draw
	default:
		return Unknown
	}
}
