// Command describe prints the derived descriptions of one or more datasets.
//
//	describe [-transpose] [-desc file] [-format json|yaml|table] [-export dir] <source>...
//	describe -version
//
// Sources are loaded concurrently. With -export the items and features
// views of every source are also written to dir, together with the items
// description as <name>.desc.yaml, which -desc accepts back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/muesli/termenv"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"github.com/sgratzl/lineup-if-fi/internal/config"
	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/internal/exporter"
	"github.com/sgratzl/lineup-if-fi/internal/infrastructure"
	"github.com/sgratzl/lineup-if-fi/internal/schema"
	"github.com/sgratzl/lineup-if-fi/internal/services"
	"github.com/sgratzl/lineup-if-fi/internal/session"
	"github.com/sgratzl/lineup-if-fi/internal/validation"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// maxConcurrentLoads bounds how many sources are fetched at once
const maxConcurrentLoads = 4

var errUsage = errors.New("usage: describe [flags] <source>...")

type options struct {
	transpose    bool
	descFile     string
	format       string
	exportDir    string
	exportFormat string
	logLevel     string
	version      bool
	sources      []string
}

// output is what gets printed per source
type output struct {
	Name     string              `json:"name" yaml:"name"`
	Source   string              `json:"source" yaml:"source"`
	Rows     int                 `json:"rows" yaml:"rows"`
	Items    domain.Description  `json:"items" yaml:"items"`
	Features *domain.Description `json:"features,omitempty" yaml:"features,omitempty"`
	Exported []string            `json:"exported,omitempty" yaml:"exported,omitempty"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.transpose, "transpose", false, "also print the description of the transposed features view")
	fs.StringVar(&opts.descFile, "desc", "", "partial description file (YAML or JSON) to backfill")
	fs.StringVar(&opts.format, "format", "table", "output format: json, yaml or table")
	fs.StringVar(&opts.exportDir, "export", "", "write the items and features views to this directory")
	fs.StringVar(&opts.exportFormat, "export-format", "csv", "export format: csv or xlsx")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.version {
		return opts, nil
	}

	opts.sources = fs.Args()
	if len(opts.sources) == 0 {
		fs.Usage()
		return opts, errUsage
	}
	switch opts.format {
	case "json", "yaml", "table":
	default:
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		_, err := fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	logCfg := cfg.Logging
	logCfg.Level = opts.logLevel
	logCfg.Format = "text"
	logger := infrastructure.NewLogger(stderr, logCfg)

	var desc *domain.Description
	if opts.descFile != "" {
		d, err := schema.LoadDescriptionFile(opts.descFile)
		if err != nil {
			return err
		}
		desc = &d
	}

	var exportFormat exporter.Format
	if opts.exportDir != "" {
		if exportFormat, err = exporter.ParseFormat(opts.exportFormat); err != nil {
			return err
		}
		v := validation.NewFileValidator(logger, 0)
		if err := v.ValidateOutputDirectory(opts.exportDir); err != nil {
			return err
		}
	}

	loader := dataset.NewLoader(logger,
		dataset.WithMaxBytes(cfg.Data.MaxUploadBytes),
		dataset.WithSheet(cfg.Data.Sheet))
	svc := services.NewLineupService(session.NewStore(), loader, logger,
		services.WithRemoteSources(true),
		services.WithFetchTimeout(cfg.Data.FetchTimeout),
		services.WithMaxBytes(cfg.Data.MaxUploadBytes))
	defer svc.Close()

	results := make([]output, len(opts.sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, source := range opts.sources {
		g.Go(func() error {
			out, err := describe(gctx, svc, source, desc, opts, exportFormat)
			if err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return render(stdout, opts.format, results)
}

func describe(ctx context.Context, svc *services.LineupService, source string, desc *domain.Description, opts options, format exporter.Format) (output, error) {
	res, err := svc.Describe(ctx, source, desc)
	if err != nil {
		return output{}, err
	}
	out := output{
		Name:   res.Name,
		Source: res.Source,
		Rows:   res.Rows,
		Items:  res.Items,
	}
	if opts.transpose {
		features := res.Features
		out.Features = &features
	}

	if opts.exportDir != "" {
		if out.Exported, err = export(ctx, svc, res.Source, desc, opts.exportDir, format); err != nil {
			return output{}, err
		}
		path, err := saveDescription(opts.exportDir, res.Name, res.Items)
		if err != nil {
			return output{}, err
		}
		out.Exported = append(out.Exported, path)
	}
	return out, nil
}

// export opens a throwaway session on source and writes both views to dir
func export(ctx context.Context, svc *services.LineupService, source string, desc *domain.Description, dir string, format exporter.Format) ([]string, error) {
	sum, err := svc.Load(ctx, services.LoadRequest{Source: source, Description: desc})
	if err != nil {
		return nil, err
	}
	defer svc.Delete(ctx, sum.ID)

	var written []string
	for _, side := range []session.Side{session.SideItems, session.SideFeatures} {
		path, err := svc.ExportFile(ctx, sum.ID, string(side), format, dir)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func saveDescription(dir, name string, desc domain.Description) (string, error) {
	data, err := schema.MarshalDescription(desc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".desc.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write description: %w", err)
	}
	return path, nil
}

func render(w io.Writer, format string, results []output) error {
	switch format {
	case "json":
		var v interface{} = results
		if len(results) == 1 {
			v = results[0]
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		for i, r := range results {
			if i > 0 {
				if _, err := io.WriteString(w, "---\n"); err != nil {
					return err
				}
			}
			data, err := yaml.Marshal(r)
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
		return nil
	default:
		return renderTable(w, results)
	}
}

// renderTable prints one block per view. Styling is dropped when w is not a terminal.
func renderTable(w io.Writer, results []output) error {
	term := termenv.NewOutput(w)
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := term.String(fmt.Sprintf("%s (%d rows)", r.Name, r.Rows)).Bold()
		fmt.Fprintf(w, "%s  %s\n", title, term.String(r.Source).Faint())

		writeDescription(w, term, "items", r.Items)
		if r.Features != nil {
			writeDescription(w, term, "features", *r.Features)
		}
		for _, path := range r.Exported {
			fmt.Fprintf(w, "exported %s\n", path)
		}
	}
	return nil
}

func writeDescription(w io.Writer, term *termenv.Output, view string, desc domain.Description) {
	fmt.Fprintf(w, "\n%s  primary key: %s\n", term.String(view).Underline(), desc.PrimaryKey)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tLABEL\tDOMAIN\tCOLOR")
	for _, col := range desc.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			col.Column, col.Type, col.Label, domainText(col), swatch(term, col.Color))
	}
	tw.Flush()
}

func domainText(col domain.ColumnDescriptor) string {
	switch {
	case col.Domain != nil:
		return col.Domain.String()
	case len(col.Categories) > 0:
		return strings.Join(col.Categories, ", ")
	default:
		return ""
	}
}

// swatch is the last column so escape codes never shift the alignment
func swatch(term *termenv.Output, color string) string {
	if color == "" {
		return ""
	}
	return term.String("■ ").Foreground(term.Color(color)).String() + color
}
