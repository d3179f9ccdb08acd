package theme

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	cyan    = "\033[36m"
	magenta = "\033[35m"
	reset   = "\033[0m"
)

// Banner returns the CLI banner. color=false drops the ANSI escapes.
func Banner(color bool) string {
	c, m, r := cyan, magenta, reset
	if !color {
		c, m, r = "", "", ""
	}
	return "" +
		c + "  ┌─┐┌─┐┌─┐┬┌─┐┬  ┬─┐┌─┐┬  ┌─┐┬ ┬\n" + r +
		c + "  └─┐│ ││  │├─┤│  ├┬┘├┤ │  ├─┤└┬┘\n" + r +
		c + "  └─┘└─┘└─┘┴┴ ┴┴─┘┴└─└─┘┴─┘┴ ┴ ┴ \n" + r +
		m + "  linkedin + x relay, with drafted replies\n" + r
}

// PrintBanner writes the banner to w, colored only when w is a terminal.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner(isTerminal(w)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
