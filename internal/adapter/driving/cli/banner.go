package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/diillson/aws-costlens/pkg/version"
)

const banner = `
    ___        ______     ____          _   _
   / \ \      / / ___|   / ___|___  ___| |_| |    ___ _ __  ___
  / _ \ \ /\ / /\___ \  | |   / _ \/ __| __| |   / _ \ '_ \/ __|
 / ___ \ V  V /  ___) | | |__| (_) \__ \ |_| |__|  __/ | | \__ \
/_/   \_\_/\_/  |____/   \____\___/|___/\__|_____\___|_| |_|___/
`

// displayWelcomeBanner exibe o banner de boas-vindas com informações de versão.
func displayWelcomeBanner(w io.Writer) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Fprintln(w, red(banner))
	fmt.Fprintln(w, blue(fmt.Sprintf("AWS CostLens CLI (v%s)", version.FormatVersion())))
}
