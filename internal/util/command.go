package util

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/replit/pyscan/internal/config"
)

// ProgressMsg reports what pyscan is doing on stderr, keeping stdout
// free for command output, unless --quiet was passed.
func ProgressMsg(msg string) {
	if !config.Quiet {
		fmt.Fprintln(os.Stderr, progressPrefix, msg)
	}
}

func quoteCmd(cmd []string) string {
	cleanedCmd := make([]string, len(cmd))
	copy(cleanedCmd, cmd)
	for i := range cmd {
		if strings.ContainsRune(cmd[i], '\n') {
			cleanedCmd[i] = "<script>"
		}
	}
	return shellquote.Join(cleanedCmd...)
}

// CmdOutput runs cmd and returns its stdout. The command is echoed
// with ProgressMsg first. Stderr of the child goes to our stderr.
func CmdOutput(cmd []string) ([]byte, error) {
	ProgressMsg(quoteCmd(cmd))
	command := exec.Command(cmd[0], cmd[1:]...)
	command.Stderr = os.Stderr
	output, err := command.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", quoteCmd(cmd), err)
	}
	return output, nil
}
