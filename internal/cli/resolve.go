package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwerling/thornweld/internal/ir"
	"github.com/mwerling/thornweld/internal/schedule"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Phase string // restrict to one phase
}

// PhaseSchedule is one phase's resolved order as reported to the user.
type PhaseSchedule struct {
	Phase ir.Phase `json:"phase" yaml:"phase"`
	Order []string `json:"order" yaml:"order"`
	Roots []string `json:"roots" yaml:"roots"`
	Hash  string   `json:"hash" yaml:"hash"`
}

// ScheduleManifest is the complete resolution output for one thorn.
type ScheduleManifest struct {
	Thorn    string          `json:"thorn" yaml:"thorn"`
	SpecHash string          `json:"spec_hash" yaml:"spec_hash"`
	Phases   []PhaseSchedule `json:"phases" yaml:"phases"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <spec-dir>",
		Short: "Resolve scheduled steps into execution order",
		Long: `Resolve each thorn's scheduling constraints into a deterministic
execution order per phase.

Steps with no constraint between them keep their declaration order.
Warnings (duplicate alias literals) go to stderr; contradictory
constraints and name/alias collisions fail with exit code 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Phase, "phase", "p", "", "resolve only this phase")

	return cmd
}

func runResolve(opts *ResolveOptions, specDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadSpecs(specDir, LoadModeFailFast)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCommandError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCommandError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}

	var phase ir.Phase
	if opts.Phase != "" {
		var err error
		if phase, err = ir.ParsePhase(opts.Phase); err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
	}

	var manifests []ScheduleManifest
	for _, thorn := range loadResult.Thorns {
		manifest, warnings, err := resolveThorn(thorn, phase)
		if err != nil {
			return outputResolveError(formatter, thorn.Name, err)
		}
		for _, ps := range manifest.Phases {
			formatter.VerboseLog("Resolved %s/%s: %d step(s)", thorn.Name, ps.Phase, len(ps.Order))
		}
		printWarnings(formatter, thorn.Name, warnings)
		manifests = append(manifests, *manifest)
	}

	return outputResolveSuccess(formatter, manifests)
}

// resolveThorn resolves one thorn, either a single phase or all of them.
func resolveThorn(thorn *ir.ThornSpec, phase ir.Phase) (*ScheduleManifest, []schedule.Warning, error) {
	specHash, err := ir.SpecHash(thorn)
	if err != nil {
		return nil, nil, err
	}

	var results []*schedule.Result
	if phase != "" {
		res, err := schedule.Resolve(thorn.Steps, phase)
		if err != nil {
			return nil, nil, err
		}
		results = []*schedule.Result{res}
	} else {
		if results, err = schedule.ResolveAll(thorn.Steps); err != nil {
			return nil, nil, err
		}
	}

	manifest := &ScheduleManifest{Thorn: thorn.Name, SpecHash: specHash}
	var warnings []schedule.Warning
	for _, res := range results {
		hash, err := ir.ScheduleHash(res.Phase, res.Order)
		if err != nil {
			return nil, nil, err
		}
		manifest.Phases = append(manifest.Phases, PhaseSchedule{
			Phase: res.Phase,
			Order: res.Order,
			Roots: res.Roots,
			Hash:  hash,
		})
		warnings = append(warnings, res.Warnings...)
	}
	return manifest, warnings, nil
}

// printWarnings writes non-fatal diagnostics to stderr.
func printWarnings(formatter *OutputFormatter, thorn string, warnings []schedule.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "warning [%s] %s: %s\n", w.Code, thorn, w.Message)
	}
}

// outputResolveError reports a resolution failure (exit code 1).
func outputResolveError(formatter *OutputFormatter, thorn string, err error) error {
	var resErr *schedule.ResolveError
	if errors.As(err, &resErr) {
		_ = formatter.Error(string(resErr.Code), fmt.Sprintf("%s: %s", thorn, resErr.Message), resErr.Steps)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", resErr.Code, resErr.Message))
	}
	_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("%s: %v", thorn, err), nil)
	return NewExitError(ExitFailure, err.Error())
}

// outputResolveSuccess outputs resolved schedules.
func outputResolveSuccess(formatter *OutputFormatter, manifests []ScheduleManifest) error {
	if formatter.Structured() {
		return formatter.Success(manifests)
	}

	for _, m := range manifests {
		fmt.Fprintf(formatter.Writer, "%s (spec %s)\n", m.Thorn, shortHash(m.SpecHash))
		for _, ps := range m.Phases {
			fmt.Fprintf(formatter.Writer, "  %-10s %s\n", ps.Phase+":", strings.Join(ps.Order, " -> "))
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

// shortHash abbreviates a hex digest for human-readable output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
