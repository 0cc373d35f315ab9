package annotload

import (
	"io"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	loadcfg "github.com/annotbase/annotload/internal/config"
	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/pkg/annot"
)

// Option is a function that configures a Loader instance.
type Option func(*config) error

type config struct {
	input           string
	inputReader     io.Reader
	mode            string
	annotType       string
	profile         loadcfg.Profile
	reference       string
	curator         string
	includeObsolete bool
	outputDir       string
	bulkCommand     string
	encoding        string
	store           store.Store
	log             zerolog.Logger
	now             func() utc.Time
	reportWriter    io.Writer
}

func newConfig() *config {
	return &config{
		mode:      string(annot.ModeAppend),
		reference: annot.NoReference,
		curator:   annot.NoCurator,
		outputDir: ".",
		log:       *defaultLog,
	}
}

// WithInput sets the input file path.
func WithInput(path string) Option {
	return func(c *config) error {
		c.input = path
		return nil
	}
}

// WithInputReader supplies the input directly, overriding the file path.
// Intended for tests and for piping.
func WithInputReader(r io.Reader) Option {
	return func(c *config) error {
		c.inputReader = r
		return nil
	}
}

// WithMode sets the processing mode: new, append, preview or delete.
func WithMode(mode string) Option {
	return func(c *config) error {
		c.mode = mode
		return nil
	}
}

// WithAnnotationType names the annotation type being loaded.
func WithAnnotationType(name string) Option {
	return func(c *config) error {
		c.annotType = name
		return nil
	}
}

// WithProfile supplies the annotation-type profile.
func WithProfile(p loadcfg.Profile) Option {
	return func(c *config) error {
		c.profile = p
		return nil
	}
}

// WithDeletionReference scopes new/delete mode deletion to a reference.
// The sentinel annot.NoReference disables reference scoping.
func WithDeletionReference(token string) Option {
	return func(c *config) error {
		c.reference = token
		return nil
	}
}

// WithDeletionCurator scopes new/delete mode deletion to curator logins
// matching the prefix. Reference scoping takes precedence. The sentinel
// annot.NoCurator disables curator scoping.
func WithDeletionCurator(token string) Option {
	return func(c *config) error {
		c.curator = token
		return nil
	}
}

// WithObsoleteTerms admits obsolete vocabulary entries into the term cache.
func WithObsoleteTerms(include bool) Option {
	return func(c *config) error {
		c.includeObsolete = include
		return nil
	}
}

// WithOutputDir sets the directory for row files and the error report.
func WithOutputDir(dir string) Option {
	return func(c *config) error {
		c.outputDir = dir
		return nil
	}
}

// WithBulkCommand sets the opaque bulk-load command invoked once per
// entity type that produced rows. Empty leaves the row files in place.
func WithBulkCommand(command string) Option {
	return func(c *config) error {
		c.bulkCommand = command
		return nil
	}
}

// WithEncoding sets the input encoding ("utf-8" or "latin1").
func WithEncoding(encoding string) Option {
	return func(c *config) error {
		c.encoding = encoding
		return nil
	}
}

// WithStore sets the annotation store.
func WithStore(s store.Store) Option {
	return func(c *config) error {
		c.store = s
		return nil
	}
}

// WithLogger sets the run logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) error {
		c.log = log
		return nil
	}
}

// WithClock overrides the source of "today" for defaulted entry dates.
func WithClock(now func() utc.Time) Option {
	return func(c *config) error {
		c.now = now
		return nil
	}
}

// WithReportWriter redirects the error report, overriding the report file.
func WithReportWriter(w io.Writer) Option {
	return func(c *config) error {
		c.reportWriter = w
		return nil
	}
}
