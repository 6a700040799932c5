// Package ui is the terminal implementation of the session's UI boundary:
// survey prompts in, colored and tabulated output out.
package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/fluree-labs/flok/internal/config"
	"github.com/fluree-labs/flok/internal/docker"
	"github.com/fluree-labs/flok/internal/hub"
	"github.com/fluree-labs/flok/internal/ledger"
	"github.com/fluree-labs/flok/internal/orchestrator"
	"github.com/fluree-labs/flok/internal/state"
)

var (
	infoColor    = color.New(color.FgCyan).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
)

// statsDisplayCount is how many samples one stats view shows before
// returning to the menu.
const statsDisplayCount = 5

// Terminal renders the interactive session on stdout/stderr.
type Terminal struct {
	verbose bool
}

// NewTerminal builds the terminal UI. Verbose enables diagnostic detail.
func NewTerminal(verbose bool) *Terminal {
	return &Terminal{verbose: verbose}
}

// promptErr translates a survey abort into the session's interrupt signal.
func promptErr(err error) error {
	if err == terminal.InterruptErr {
		return orchestrator.ErrInterrupted
	}
	return err
}

func (t *Terminal) Info(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", infoColor("ℹ"), fmt.Sprintf(format, args...))
}

func (t *Terminal) Warn(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", warningColor("⚠"), fmt.Sprintf(format, args...))
}

func (t *Terminal) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorColor("✗"), fmt.Sprintf(format, args...))
}

func (t *Terminal) Success(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", successColor("✓"), fmt.Sprintf(format, args...))
}

// Debugf prints only when verbose is on.
func (t *Terminal) Debugf(format string, args ...interface{}) {
	if t.verbose {
		fmt.Printf("[debug] %s\n", fmt.Sprintf(format, args...))
	}
}

func (t *Terminal) SelectResume(rec state.ContainerRecord) (orchestrator.ResumeChoice, error) {
	fmt.Println()
	t.Info("found stopped container %s (%s, port %d)", rec.Name, rec.Image, rec.HostPort)

	options := []string{
		"Start it again",
		"Recreate from scratch (removes the stopped container)",
		"Forget it and set up a new one",
	}
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: options,
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		return 0, promptErr(err)
	}

	switch index {
	case 0:
		return orchestrator.ResumeStart, nil
	case 1:
		return orchestrator.ResumeRecreate, nil
	default:
		return orchestrator.ResumeDiscard, nil
	}
}

func (t *Terminal) PromptContainerName(defaultName string) (string, error) {
	prompt := &survey.Input{
		Message: "Container name:",
		Default: defaultName,
	}

	var name string
	if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
		return "", promptErr(err)
	}
	return strings.TrimSpace(name), nil
}

func (t *Terminal) SelectImageSource() (orchestrator.ImageSource, error) {
	prompt := &survey.Select{
		Message: "Which image would you like to run?",
		Options: []string{
			"Download a version from Docker Hub",
			"Use an image already on this machine",
		},
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		return 0, promptErr(err)
	}
	if index == 1 {
		return orchestrator.ImageSourceLocal, nil
	}
	return orchestrator.ImageSourceRemote, nil
}

func (t *Terminal) SelectRemoteTag(tags []hub.Tag) (string, error) {
	options := make([]string, 0, len(tags))
	refs := make(map[string]string, len(tags))

	for _, tag := range tags {
		option := tag.Name
		if !tag.LastUpdated.IsZero() {
			option = fmt.Sprintf("%s (%s, pushed %s)",
				tag.Name, humanize.Bytes(uint64(tag.FullSize)), humanize.Time(tag.LastUpdated))
		}
		options = append(options, option)
		refs[option] = tag.Reference()
	}

	prompt := &survey.Select{
		Message:  "Select version:",
		Options:  options,
		PageSize: 15,
	}

	var selected string
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", promptErr(err)
	}
	return refs[selected], nil
}

func (t *Terminal) SelectLocalImage(images []docker.ImageInfo) (string, error) {
	options := make([]string, 0, len(images))
	refs := make(map[string]string, len(images))

	for _, img := range images {
		ref := docker.FullReference(img.Tag)
		option := fmt.Sprintf("%s (%s)", ref, humanize.Bytes(uint64(img.Size)))
		options = append(options, option)
		refs[option] = ref
	}

	prompt := &survey.Select{
		Message:  "Select local image:",
		Options:  options,
		PageSize: 15,
	}

	var selected string
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", promptErr(err)
	}
	return refs[selected], nil
}

func (t *Terminal) ShowPullProgress(reference string, events <-chan docker.PullProgress) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Pulling %s...", reference)
	s.Start()

	for event := range events {
		if event.Status == "" {
			continue
		}
		if event.Progress != "" {
			s.Suffix = fmt.Sprintf(" %s %s", event.Status, event.Progress)
		} else {
			s.Suffix = " " + event.Status
		}
	}

	s.Stop()
}

func (t *Terminal) PromptPort(defaultPort int) (string, error) {
	prompt := &survey.Input{
		Message: "Host port:",
		Default: strconv.Itoa(defaultPort),
		Help:    fmt.Sprintf("The server listens on http://localhost:PORT. Ports %d-%d are accepted.", config.MinPort, config.MaxPort),
	}

	var port string
	if err := survey.AskOne(prompt, &port); err != nil {
		return "", promptErr(err)
	}
	return strings.TrimSpace(port), nil
}

func (t *Terminal) PromptDataDir(defaultDir string) (string, error) {
	prompt := &survey.Input{
		Message: "Data directory (empty keeps data inside the container):",
		Default: defaultDir,
	}

	var dir string
	if err := survey.AskOne(prompt, &dir); err != nil {
		return "", promptErr(err)
	}
	return strings.TrimSpace(dir), nil
}

func (t *Terminal) ConfirmCreateDir(path string) (bool, error) {
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s does not exist. Create it?", path),
		Default: true,
	}

	var create bool
	if err := survey.AskOne(prompt, &create); err != nil {
		return false, promptErr(err)
	}
	return create, nil
}

func (t *Terminal) SelectMode(defaultMode string) (config.Mode, error) {
	background := "Background (keeps running after you exit)"
	foreground := "Foreground (show server output after start)"

	options := []string{background, foreground}
	def := background
	if defaultMode == string(config.Foreground) {
		def = foreground
	}

	prompt := &survey.Select{
		Message: "Run mode:",
		Options: options,
		Default: def,
	}

	var selected string
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", promptErr(err)
	}
	if selected == foreground {
		return config.Foreground, nil
	}
	return config.Background, nil
}

func (t *Terminal) SelectManageAction(containerName string) (orchestrator.ManageAction, error) {
	actions := []struct {
		label  string
		action orchestrator.ManageAction
	}{
		{"Show status", orchestrator.ActionStatus},
		{"Watch resource usage", orchestrator.ActionStats},
		{"Show logs", orchestrator.ActionLogs},
		{"Manage ledgers", orchestrator.ActionLedgers},
		{"Stop container", orchestrator.ActionStop},
		{"Stop and destroy container", orchestrator.ActionDestroy},
		{"Exit", orchestrator.ActionExit},
	}

	options := make([]string, len(actions))
	for i, a := range actions {
		options[i] = a.label
	}

	prompt := &survey.Select{
		Message:  fmt.Sprintf("Managing %s:", containerName),
		Options:  options,
		PageSize: len(options),
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		return 0, promptErr(err)
	}
	return actions[index].action, nil
}

func (t *Terminal) ShowStatus(status docker.Status) {
	stateLabel := string(status.State)
	switch status.State {
	case docker.StateRunning:
		stateLabel = successColor(stateLabel)
	case docker.StateExited:
		stateLabel = warningColor(stateLabel)
	default:
		stateLabel = errorColor(stateLabel)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", status.Name)
	fmt.Fprintf(w, "State:\t%s\n", stateLabel)
	fmt.Fprintf(w, "Endpoint:\thttp://localhost:%d\n", status.HostPort)
	if status.DataDir != "" {
		fmt.Fprintf(w, "Data:\t%s\n", status.DataDir)
	}
	if status.StartedAt != "" {
		if started, err := time.Parse(time.RFC3339Nano, status.StartedAt); err == nil {
			fmt.Fprintf(w, "Started:\t%s\n", humanize.Time(started))
		}
	}
	w.Flush()
}

func (t *Terminal) ShowStats(samples <-chan docker.StatsSample) {
	shown := 0
	for sample := range samples {
		fmt.Printf("CPU %5.1f%%   memory %s / %s (%.1f%%)\n",
			sample.CPUPercent,
			humanize.Bytes(sample.MemoryUsage),
			humanize.Bytes(sample.MemoryLimit),
			sample.MemoryPercent)

		shown++
		if shown >= statsDisplayCount {
			break
		}
	}
}

func (t *Terminal) ShowLogs(lines []string) {
	if len(lines) == 0 {
		t.Info("no log output yet")
		return
	}
	for _, line := range lines {
		fmt.Println(line)
	}
}

func (t *Terminal) ShowLedgers(summaries []ledger.Summary) {
	if len(summaries) == 0 {
		t.Info("no ledgers found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "LEDGER\tCOMMITS\tSIZE\tLAST COMMIT")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Alias, s.CommitCount, s.DisplaySize(), s.LastCommitTime)
	}
	w.Flush()
}

func (t *Terminal) SelectLedger(summaries []ledger.Summary) (string, bool, error) {
	const back = "← back"

	options := make([]string, 0, len(summaries)+1)
	for _, s := range summaries {
		options = append(options, s.Alias)
	}
	options = append(options, back)

	prompt := &survey.Select{
		Message:  "Select ledger:",
		Options:  options,
		PageSize: 15,
	}

	var selected string
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", false, promptErr(err)
	}
	if selected == back {
		return "", true, nil
	}
	return selected, false, nil
}

func (t *Terminal) SelectLedgerAction(alias string) (orchestrator.LedgerAction, error) {
	prompt := &survey.Select{
		Message: fmt.Sprintf("Ledger %s:", alias),
		Options: []string{"Show details", "Delete", "← back"},
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		return 0, promptErr(err)
	}

	switch index {
	case 0:
		return orchestrator.LedgerActionDescribe, nil
	case 1:
		return orchestrator.LedgerActionDelete, nil
	default:
		return orchestrator.LedgerActionBack, nil
	}
}

func (t *Terminal) ShowLedgerDetail(detail string) {
	fmt.Println(detail)
}

// ConfirmLedgerDelete requires the operator to type the ledger name back.
// Anything else declines.
func (t *Terminal) ConfirmLedgerDelete(alias string) (bool, error) {
	t.Warn("this permanently deletes ledger %s and all its data", alias)

	prompt := &survey.Input{
		Message: fmt.Sprintf("Type %q to confirm:", alias),
	}

	var typed string
	if err := survey.AskOne(prompt, &typed); err != nil {
		return false, promptErr(err)
	}
	return strings.TrimSpace(typed) == alias, nil
}
