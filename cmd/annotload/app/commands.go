package app

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/annotbase/annotload"
	loadcfg "github.com/annotbase/annotload/internal/config"
	"github.com/annotbase/annotload/pkg/annot"
	"github.com/annotbase/annotload/pkg/errors"
	"github.com/annotbase/annotload/pkg/logging"
)

// NewLoadCommand creates the load command.
func (a *App) NewLoadCommand() *cobra.Command {
	var (
		input           string
		mode            string
		annotType       string
		reference       string
		curator         string
		includeObsolete bool
		encoding        string
		outputDir       string
		bulkCommand     string
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load an annotation file into the store",
		Long: `Load runs one annotation load in the requested mode.

In new mode the scoped deletion pre-pass runs before any line is
processed; append mode skips deletion; preview mode reports what would
happen without writing row files or touching the store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runLoad(cmd, loadParams{
				input:           input,
				mode:            mode,
				annotType:       annotType,
				reference:       reference,
				curator:         curator,
				includeObsolete: includeObsolete,
				encoding:        encoding,
				outputDir:       outputDir,
				bulkCommand:     bulkCommand,
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "tab-delimited annotation file (required)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(annot.ModeAppend), "load mode: new, append, preview")
	cmd.Flags().StringVarP(&annotType, "annot-type", "t", "", "annotation type to load (required)")
	cmd.Flags().StringVar(&reference, "reference", annot.NoReference, "scope new-mode deletion to this reference")
	cmd.Flags().StringVar(&curator, "curator", annot.NoCurator, "scope new-mode deletion to curator logins with this prefix")
	cmd.Flags().BoolVar(&includeObsolete, "include-obsolete", false, "accept obsolete vocabulary terms")
	cmd.Flags().StringVar(&encoding, "encoding", "utf-8", "input encoding: utf-8 or latin1")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for row files and the error report")
	cmd.Flags().StringVar(&bulkCommand, "bulk-command", "", "command invoked per entity row file after the run")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("annot-type")

	return cmd
}

// NewDeleteCommand creates the delete command, a shorthand for running a
// load in delete mode with no input file.
func (a *App) NewDeleteCommand() *cobra.Command {
	var (
		annotType string
		reference string
		curator   string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete scoped annotations without loading",
		Long: `Delete runs the cascading deletion pre-pass and stops: scoped
evidence, its properties and notes, and any annotation left with zero
surviving evidence. Reference scoping takes precedence over curator
scoping; with neither, every annotation of the type is removed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runLoad(cmd, loadParams{
				mode:      string(annot.ModeDelete),
				annotType: annotType,
				reference: reference,
				curator:   curator,
			})
		},
	}

	cmd.Flags().StringVarP(&annotType, "annot-type", "t", "", "annotation type to delete from (required)")
	cmd.Flags().StringVar(&reference, "reference", annot.NoReference, "scope deletion to this reference")
	cmd.Flags().StringVar(&curator, "curator", annot.NoCurator, "scope deletion to curator logins with this prefix")
	_ = cmd.MarkFlagRequired("annot-type")

	return cmd
}

// loadParams carries the per-run command-line switches.
type loadParams struct {
	input           string
	mode            string
	annotType       string
	reference       string
	curator         string
	includeObsolete bool
	encoding        string
	outputDir       string
	bulkCommand     string
}

func (a *App) runLoad(cmd *cobra.Command, p loadParams) error {
	ctx := cmd.Context()

	profiles, err := loadcfg.LoadProfiles(a.config.Profiles)
	if err != nil {
		return err
	}
	profile, ok := profiles[p.annotType]
	if !ok {
		return errors.NewConfigError("profiles", "no profile for annotation type: "+p.annotType, errors.ErrNotFound)
	}

	st, err := a.Store(ctx)
	if err != nil {
		return err
	}

	log := *a.logger
	if a.config.Diagnostics != "" {
		diag, closer, derr := logging.NewDiagnostics(a.config.Diagnostics)
		if derr != nil {
			return errors.WrapIO("create", a.config.Diagnostics, derr)
		}
		defer func() { _ = closer.Close() }()
		log = logging.Tee(diag)
	}

	outputDir := p.outputDir
	if outputDir == "" {
		outputDir = a.config.OutputDir
	}
	bulkCommand := p.bulkCommand
	if bulkCommand == "" {
		bulkCommand = a.config.BulkCommand
	}
	encoding := p.encoding
	if encoding == "" {
		encoding = a.config.Encoding
	}

	loader, err := annotload.New(
		annotload.WithStore(st),
		annotload.WithInput(p.input),
		annotload.WithMode(p.mode),
		annotload.WithAnnotationType(p.annotType),
		annotload.WithProfile(profile),
		annotload.WithDeletionReference(p.reference),
		annotload.WithDeletionCurator(p.curator),
		annotload.WithObsoleteTerms(p.includeObsolete),
		annotload.WithOutputDir(outputDir),
		annotload.WithBulkCommand(bulkCommand),
		annotload.WithEncoding(encoding),
		annotload.WithLogger(log),
	)
	if err != nil {
		return err
	}

	result, err := loader.Run(ctx)
	if err != nil {
		return err
	}

	printResult(cmd, result)
	return nil
}

// printResult writes the run summary to stdout.
func printResult(cmd *cobra.Command, r *annotload.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mode: %s\n", r.Mode)
	if plan := r.DeletionPlan; plan != nil {
		fmt.Fprintf(out, "deleted: %d evidence, %d properties, %d notes, %d annotations\n",
			len(plan.Evidence), len(plan.Properties), len(plan.Notes), len(plan.Annotations))
	}
	if r.Mode.Loads() {
		fmt.Fprintf(out, "lines: %d  rejected: %d  duplicates: %d\n", r.Lines, r.Rejected, r.Duplicates)
		fmt.Fprintf(out, "rows: %d annotations, %d evidence, %d properties, %d notes\n",
			r.Annotations, r.Evidence, r.Properties, r.Notes)
	}
	if r.ReportEntries > 0 {
		fmt.Fprintf(out, "report entries: %d\n", r.ReportEntries)
	}
	if r.Preview {
		fmt.Fprintln(out, "preview: nothing was written")
	}
}

// NewProfilesCommand creates the profiles command.
func (a *App) NewProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured annotation-type profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := loadcfg.LoadProfiles(a.config.Profiles)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(profiles))
			for name := range profiles {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				p := profiles[name]
				fmt.Fprintf(out, "%s\tstrategy=%s\tterms=%s\tnotes=%s\n",
					p.Name, p.Strategy, p.TermVocabulary, p.NoteVariant)
			}
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "annotload version %s\n", a.version)
			fmt.Fprintf(out, "commit: %s\n", a.commit)
			fmt.Fprintf(out, "built: %s\n", a.date)
			fmt.Fprintf(out, "go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
