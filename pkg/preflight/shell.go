package preflight

import (
	"os"
	"strings"
)

// getShellCommandCheck returns a login shell invocation of `command -v cmd`,
// using $SHELL or sh.
func getShellCommandCheck(cmd string) (shell string, args []string) {
	shell = os.Getenv("SHELL")
	if shell == "" {
		shell = "sh"
	}
	return shell, []string{"-l", "-c", "command -v " + shellQuote(cmd)}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
