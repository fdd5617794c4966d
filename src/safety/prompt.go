package safety

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Options control confirmation behaviour for destructive operations.
type Options struct {
	// Force skips the confirmation prompt (-f).
	Force bool
}

// Confirm prompts the user to confirm a destructive action.
// - If opts.Force is true, it returns true without prompting.
// - Only a case-insensitive "yes" confirms; any other non-empty input declines.
// - Empty input re-prompts until something is typed or input ends.
// The caller decides what to do with the result.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.Force {
		return true, nil
	}
	reader := bufio.NewReader(in)
	for {
		if out != nil {
			fmt.Fprintf(out, "%s Type 'yes' to continue: ", strings.TrimSpace(question))
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		ans := strings.TrimSpace(line)
		if ans != "" {
			return strings.EqualFold(ans, "yes"), nil
		}
		if err == io.EOF {
			// Input ended without an answer; decline.
			return false, nil
		}
	}
}
