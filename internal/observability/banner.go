package observability

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
)

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner prints the startup banner, centered to the terminal.
func PrintBanner() {
	banner := `
   __            __        _ __      __
  / /____  _____/ /_____  (_) /___  / /_
 / __/ _ \/ ___/ __/ __ \/ / / __ \/ __/
/ /_/  __(__  ) /_/ /_/ / / / /_/ / /_
\__/\___/____/\__/ .___/_/_/\____/\__/
                /_/
          >> AUTOMATED TESTING ASSISTANT <<
`

	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}
