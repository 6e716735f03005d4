package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwerling/thornweld/internal/emitter"
	"github.com/mwerling/thornweld/internal/ir"
	"github.com/mwerling/thornweld/internal/locator"
	"github.com/mwerling/thornweld/internal/parfile"
	"github.com/mwerling/thornweld/internal/provenance"
	"github.com/mwerling/thornweld/internal/schedule"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Thorn   string // thorn to generate when the spec dir declares several
	ParFile string // runtime parameter file
	Output  string // generated source path
	DBPath  string // provenance database path
	NoStore bool   // skip provenance recording
}

// GenerateReport summarizes one generation run.
type GenerateReport struct {
	Thorn    string          `json:"thorn" yaml:"thorn"`
	RunID    string          `json:"run_id" yaml:"run_id"`
	SpecHash string          `json:"spec_hash" yaml:"spec_hash"`
	Output   string          `json:"output" yaml:"output"`
	Phases   []PhaseSchedule `json:"phases" yaml:"phases"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <spec-dir>",
		Short: "Generate host-framework source from a thorn spec",
		Long: `Run the full pipeline: compile the thorn spec, resolve each phase's
execution order, locate the step implementations in their source files,
and emit one C translation unit with per-phase driver functions.

A runtime parameter file (--par) overrides declared parameter defaults
and sizes the grid hierarchy. Each run is recorded in the provenance
database unless --no-store is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Thorn, "thorn", "", "thorn to generate (required when the spec dir declares several)")
	cmd.Flags().StringVar(&opts.ParFile, "par", "", "runtime parameter file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "generated source path (default <thorn>.c)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "thornweld.db", "provenance database path")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "skip provenance recording")

	return cmd
}

func runGenerate(opts *GenerateOptions, specDir string, cmd *cobra.Command) error {
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

	thorn, err := selectThorn(loadResult.Thorns, opts.Thorn)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	specHash, err := ir.SpecHash(thorn)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("hashing %s: %v", thorn.Name, err))
	}

	// Runtime parameters override declared defaults and size the grid.
	parameters := thorn.Parameters
	if opts.ParFile != "" {
		values, err := parfile.ParseFile(opts.ParFile)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("parameter file: %v", err))
		}
		parameters = overrideParameters(thorn, values)

		hierarchy, err := parfile.Setup(values, 3)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("grid setup: %v", err))
		}
		slog.Info("grid hierarchy",
			"gsh", hierarchy.GSH,
			"delta_space", hierarchy.DeltaSpace,
			"delta_time", hierarchy.DeltaTime)
	}

	results, err := schedule.ResolveAll(thorn.Steps)
	if err != nil {
		return outputResolveError(formatter, thorn.Name, err)
	}

	runID := provenance.NewRunID()
	slog.Info("generation run", "run_id", runID, "thorn", thorn.Name, "spec_hash", specHash)

	plan, phases, warnings, err := buildPlan(specDir, thorn, parameters, results, specHash, runID)
	if err != nil {
		return outputGenerateError(formatter, err)
	}
	printWarnings(formatter, thorn.Name, warnings)

	output := opts.Output
	if output == "" {
		output = strings.ToLower(thorn.Name) + ".c"
	}

	source, err := emitter.Render(plan)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("emitting source: %v", err))
	}
	if err := os.WriteFile(output, source, 0644); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", output, err))
	}

	if !opts.NoStore {
		if err := recordRun(cmd, opts.DBPath, thorn.Name, specHash, runID, phases, warnings); err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("recording run: %v", err))
		}
	}

	report := &GenerateReport{
		Thorn:    thorn.Name,
		RunID:    runID,
		SpecHash: specHash,
		Output:   output,
		Phases:   phases,
	}
	return outputGenerateSuccess(formatter, report)
}

// selectThorn picks the thorn to generate. Unambiguous when the directory
// declares exactly one; otherwise --thorn must name it.
func selectThorn(thorns []*ir.ThornSpec, name string) (*ir.ThornSpec, error) {
	if name == "" {
		if len(thorns) == 1 {
			return thorns[0], nil
		}
		names := make([]string, len(thorns))
		for i, t := range thorns {
			names[i] = t.Name
		}
		return nil, fmt.Errorf("spec dir declares %d thorns (%s); select one with --thorn", len(thorns), strings.Join(names, ", "))
	}
	for _, t := range thorns {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("thorn %q not found in spec dir", name)
}

// overrideParameters applies par file values over declared defaults.
// Par file keys are implementation-prefixed: impl::name.
func overrideParameters(thorn *ir.ThornSpec, values *parfile.Values) []ir.ParameterSpec {
	out := make([]ir.ParameterSpec, len(thorn.Parameters))
	for i, p := range thorn.Parameters {
		out[i] = p
		if v, ok := values.Lookup(thorn.Implementation + "::" + p.Name); ok {
			out[i].Default = v
		}
	}
	return out
}

// buildPlan locates every resolved step's implementation and assembles the
// emitter input along with the provenance manifest.
func buildPlan(specDir string, thorn *ir.ThornSpec, parameters []ir.ParameterSpec, results []*schedule.Result, specHash, runID string) (*emitter.Plan, []PhaseSchedule, []schedule.Warning, error) {
	byName := make(map[string]ir.StepRecord, len(thorn.Steps))
	for _, s := range thorn.Steps {
		byName[s.Name] = s
	}

	plan := &emitter.Plan{
		Thorn:          thorn.Name,
		Implementation: thorn.Implementation,
		SpecHash:       specHash,
		RunID:          runID,
		Variables:      thorn.Variables,
		Parameters:     parameters,
	}

	var phases []PhaseSchedule
	var warnings []schedule.Warning
	for _, res := range results {
		order, err := schedule.SelectAll.Select(res)
		if err != nil {
			return nil, nil, nil, err
		}
		warnings = append(warnings, res.Warnings...)

		pp := emitter.PhasePlan{Phase: res.Phase}
		for _, name := range order {
			rec := byName[name]
			if rec.SourceFile == "" {
				return nil, nil, nil, fmt.Errorf("step %s: no source file declared", name)
			}
			body, err := locator.FindBody(filepath.Join(specDir, rec.SourceFile), name)
			if err != nil {
				return nil, nil, nil, err
			}
			slog.Debug("located step body",
				"step", name, "file", rec.SourceFile, "line", body.Line)
			pp.Steps = append(pp.Steps, emitter.StepBody{
				Name:      name,
				Signature: body.Signature,
				Code:      body.Code,
			})
		}
		plan.Phases = append(plan.Phases, pp)

		hash, err := ir.ScheduleHash(res.Phase, order)
		if err != nil {
			return nil, nil, nil, err
		}
		phases = append(phases, PhaseSchedule{
			Phase: res.Phase,
			Order: order,
			Roots: res.Roots,
			Hash:  hash,
		})
	}

	return plan, phases, warnings, nil
}

// recordRun persists the run in the provenance store.
func recordRun(cmd *cobra.Command, dbPath, thorn, specHash, runID string, phases []PhaseSchedule, warnings []schedule.Warning) error {
	store, err := provenance.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run := &provenance.Run{
		ID:        runID,
		Thorn:     thorn,
		SpecHash:  specHash,
		CreatedAt: time.Now().UTC(),
	}
	for _, ps := range phases {
		run.Schedules = append(run.Schedules, provenance.Schedule{
			Phase: ps.Phase,
			Order: ps.Order,
			Hash:  ps.Hash,
		})
	}
	for _, w := range warnings {
		run.Warnings = append(run.Warnings, provenance.Warning{
			Code:    w.Code,
			Message: w.Message,
		})
	}

	return store.Record(cmd.Context(), run)
}

// outputGenerateError classifies pipeline failures: resolution problems are
// validation failures, everything else is a command error.
func outputGenerateError(formatter *OutputFormatter, err error) error {
	var resErr *schedule.ResolveError
	if errors.As(err, &resErr) {
		_ = formatter.Error(string(resErr.Code), resErr.Message, resErr.Steps)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", resErr.Code, resErr.Message))
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return NewExitError(ExitCommandError, err.Error())
}

// outputGenerateSuccess outputs the generation report.
func outputGenerateSuccess(formatter *OutputFormatter, report *GenerateReport) error {
	if formatter.Structured() {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Generated %s (run %s)\n", report.Output, report.RunID)
	for _, ps := range report.Phases {
		fmt.Fprintf(formatter.Writer, "  %-10s %s\n", ps.Phase+":", strings.Join(ps.Order, " -> "))
	}
	return nil
}
