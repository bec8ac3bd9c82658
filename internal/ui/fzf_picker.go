package ui

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/session"
)

// ErrNoInstances is returned by PickInstance for an empty list.
var ErrNoInstances = errors.New("no instances to choose from")

// Label is the single-line picker entry for an instance.
func Label(inst catalog.Instance, favorite bool) string {
	star := "  "
	if favorite {
		star = "* "
	}
	return fmt.Sprintf("%s%-28s %-20s %-15s %s", star, inst.Name, inst.ID, inst.PrivateIP, inst.Platform)
}

// Labels builds the picker entries in list order.
func Labels(instances []catalog.Instance, favorites map[string]bool) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = Label(inst, favorites[inst.ID])
	}
	return out
}

// PickInstance lets the operator choose one instance, using fzf when
// preferred and installed, and a survey prompt otherwise. Interruption
// returns context.Canceled.
func PickInstance(ctx context.Context, instances []catalog.Instance, favorites map[string]bool, preferFZF bool) (catalog.Instance, error) {
	if len(instances) == 0 {
		return catalog.Instance{}, ErrNoInstances
	}
	instances = FavoritesFirst(instances, favorites)
	labels := Labels(instances, favorites)

	if preferFZF {
		sel, err := pickWithFZF(ctx, "Select instance: ", labels)
		if errors.Is(err, context.Canceled) {
			return catalog.Instance{}, err
		}
		if err == nil {
			if i := indexOf(labels, sel); i >= 0 {
				return instances[i], nil
			}
			return catalog.Instance{}, fmt.Errorf("selection not found")
		}
		// fzf missing or failed; fall back to survey
	}

	var selected string
	prompt := &survey.Select{
		Message:  "Select instance:",
		Options:  labels,
		PageSize: 15,
		Filter:   containsFold,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return catalog.Instance{}, context.Canceled
		}
		return catalog.Instance{}, err
	}
	if i := indexOf(labels, selected); i >= 0 {
		return instances[i], nil
	}
	return catalog.Instance{}, fmt.Errorf("selection not found")
}

// FavoritesFirst returns a copy of instances with favorites moved to the
// front. Relative order is kept within both groups.
func FavoritesFirst(instances []catalog.Instance, favorites map[string]bool) []catalog.Instance {
	out := make([]catalog.Instance, 0, len(instances))
	for _, inst := range instances {
		if favorites[inst.ID] {
			out = append(out, inst)
		}
	}
	for _, inst := range instances {
		if !favorites[inst.ID] {
			out = append(out, inst)
		}
	}
	return out
}

// SelectByIndex resolves a 1-based number typed by the operator.
func SelectByIndex(instances []catalog.Instance, input string) (catalog.Instance, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return catalog.Instance{}, fmt.Errorf("%q is not a number", input)
	}
	if n < 1 || n > len(instances) {
		return catalog.Instance{}, fmt.Errorf("invalid number %d: choose between 1 and %d", n, len(instances))
	}
	return instances[n-1], nil
}

// AskIndex prompts for a row number of the table printed by RenderTable.
func AskIndex(instances []catalog.Instance) (catalog.Instance, error) {
	if len(instances) == 0 {
		return catalog.Instance{}, ErrNoInstances
	}
	var answer string
	prompt := &survey.Input{Message: "Instance number to connect to:", Default: "1"}
	validate := func(ans interface{}) error {
		s, _ := ans.(string)
		_, err := SelectByIndex(instances, s)
		return err
	}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(validate)); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return catalog.Instance{}, context.Canceled
		}
		return catalog.Instance{}, err
	}
	return SelectByIndex(instances, answer)
}

// AskPorts prompts for whichever forwarding fields are still unset in p.
func AskPorts(mode session.Mode, p session.Ports) (session.Ports, error) {
	var qs []*survey.Question
	if mode == session.ModeRemotePortForward && p.Host == "" {
		qs = append(qs, &survey.Question{
			Name:     "host",
			Prompt:   &survey.Input{Message: "Remote host (as seen from the instance):"},
			Validate: survey.Required,
		})
	}
	if p.Remote == 0 {
		qs = append(qs, &survey.Question{
			Name:     "remote",
			Prompt:   &survey.Input{Message: "Remote port:"},
			Validate: portValidator,
		})
	}
	if p.Local == 0 {
		def := ""
		if p.Remote != 0 {
			def = strconv.Itoa(p.Remote)
		}
		qs = append(qs, &survey.Question{
			Name:     "local",
			Prompt:   &survey.Input{Message: "Local port:", Default: def, Help: "Leave as remote port when it is free locally"},
			Validate: portValidator,
		})
	}
	if len(qs) == 0 {
		return p, nil
	}

	answers := struct {
		Host   string
		Remote string
		Local  string
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return p, context.Canceled
		}
		return p, err
	}
	if answers.Host != "" {
		p.Host = strings.TrimSpace(answers.Host)
	}
	if answers.Remote != "" {
		p.Remote, _ = strconv.Atoi(strings.TrimSpace(answers.Remote))
	}
	if answers.Local != "" {
		p.Local, _ = strconv.Atoi(strings.TrimSpace(answers.Local))
	}
	if p.Local == 0 {
		p.Local = p.Remote
	}
	return p, nil
}

// Confirm asks a yes/no question.
func Confirm(message string, def bool) (bool, error) {
	ok := def
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &ok); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, context.Canceled
		}
		return false, err
	}
	return ok, nil
}

func portValidator(ans interface{}) error {
	s, _ := ans.(string)
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("enter a port between 1 and 65535")
	}
	return nil
}

func containsFold(filter, opt string, _ int) bool {
	return strings.Contains(strings.ToLower(opt), strings.ToLower(filter))
}

func indexOf(labels []string, sel string) int {
	sel = strings.TrimSpace(sel)
	for i, l := range labels {
		if strings.TrimSpace(l) == sel {
			return i
		}
	}
	return -1
}

func pickWithFZF(ctx context.Context, prompt string, options []string) (string, error) {
	if _, err := exec.LookPath("fzf"); err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, "fzf", "--prompt="+prompt, "--height=80%", "--layout=reverse")
	cmd.Stdin = strings.NewReader(strings.Join(options, "\n"))
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", context.Canceled
		}
		// fzf exits 130 on Ctrl+C and 1 on escape or no match
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 130 {
			return "", context.Canceled
		}
		return "", err
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", fmt.Errorf("no selection")
}
