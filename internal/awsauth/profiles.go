package awsauth

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// CLIProfileLister asks the AWS CLI for the configured profile names.
type CLIProfileLister struct {
	Command string
	Output  func(*exec.Cmd) ([]byte, error)
}

func NewCLIProfileLister() *CLIProfileLister {
	return &CLIProfileLister{
		Command: "aws",
		Output:  func(c *exec.Cmd) ([]byte, error) { return c.Output() },
	}
}

func (l *CLIProfileLister) ListProfiles(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, l.Command, "configure", "list-profiles")
	out, err := l.Output(cmd)
	if err != nil {
		return nil, err
	}
	return parseProfiles(out), nil
}

func parseProfiles(out []byte) []string {
	names := []string{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names
}
