package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwerling/thornweld/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledThorn pairs a compiled spec with its content hash.
type CompiledThorn struct {
	Spec *ir.ThornSpec `json:"spec" yaml:"spec"`
	Hash string        `json:"hash" yaml:"hash"`
}

// CompilationResult holds the compiled thorn specs.
type CompilationResult struct {
	Thorns []CompiledThorn `json:"thorns" yaml:"thorns"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <spec-dir>",
		Short: "Compile CUE thorn specs to canonical IR",
		Long: `Compile CUE thorn specs to canonical IR format.

The compiler parses CUE files, validates the declarations, assigns stable
declaration indexes to scheduled steps, and outputs JSON for inspection or
downstream tooling. Each thorn gets a content hash over its canonical form.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadSpecs(specDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCommandError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCommandError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specDir)

	for _, thorn := range loadResult.Thorns {
		formatter.VerboseLog("Compiled thorn: %s (%d step(s))", thorn.Name, len(thorn.Steps))
	}

	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}

	result := &CompilationResult{}
	for _, thorn := range loadResult.Thorns {
		hash, err := ir.SpecHash(thorn)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("hashing %s: %v", thorn.Name, err))
		}
		result.Thorns = append(result.Thorns, CompiledThorn{Spec: thorn, Hash: hash})
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Structured() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d thorn(s)\n\n", len(result.Thorns))
	for _, t := range result.Thorns {
		fmt.Fprintf(formatter.Writer, "  %s (%s): %d step(s), %d parameter(s), %d variable(s)\n",
			t.Spec.Name, t.Spec.Implementation,
			len(t.Spec.Steps), len(t.Spec.Parameters), len(t.Spec.Variables))
		fmt.Fprintf(formatter.Writer, "    hash %s\n", t.Hash)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote IR to %s\n", outputFile)
	}

	return nil
}

// outputCommandError reports an environment-level failure (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputLoadErrors outputs multiple spec loading errors.
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Structured() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		_ = formatter.Error(cliErrors[0].Code, cliErrors[0].Message, cliErrors)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result to a file.
func writeIRToFile(result *CompilationResult, filename string) error {
	// Indented JSON for readability; canonical form is used only for hashing.
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
