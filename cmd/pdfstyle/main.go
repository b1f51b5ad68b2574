// Command pdfstyle inspects and edits the styled text of PDF files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jung-kurt/gofpdf"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	pdfstyle "github.com/docpatch/pdfstyle-golang"
)

var log *zap.Logger

func main() {
	cmd := &cli.Command{
		Name:  "pdfstyle",
		Usage: "extract, query and rewrite styled text in PDF files",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
			&cli.StringFlag{Name: "password", Usage: "password for encrypted files"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg := zap.NewDevelopmentConfig()
			if !cmd.Bool("verbose") {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			}
			var err error
			log, err = cfg.Build()
			return ctx, err
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if log != nil {
				log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			inspectCommand(),
			stylesCommand(),
			tablesCommand(),
			replaceCommand(),
			replaceRegionCommand(),
			replaceTableCommand(),
			demoCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openDocument(cmd *cli.Command) (*pdfstyle.Document, error) {
	path := cmd.Args().First()
	if path == "" {
		return nil, fmt.Errorf("missing input file argument")
	}

	opts := []pdfstyle.Option{pdfstyle.WithLogger(log)}
	if pw := cmd.String("password"); pw != "" {
		opts = append(opts, pdfstyle.WithPassword(pw))
	}
	return pdfstyle.Open(path, opts...)
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "list extracted text containers with position and style",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Value: -1, Usage: "restrict to one page (0-based)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			doc, err := openDocument(cmd)
			if err != nil {
				return err
			}
			defer doc.Close()

			page := cmd.Int("page")
			for _, c := range doc.Containers() {
				if page >= 0 && c.PageIndex != page {
					continue
				}
				fmt.Println(c)
			}
			return nil
		},
	}
}

func stylesCommand() *cli.Command {
	return &cli.Command{
		Name:      "styles",
		Usage:     "summarize the text styles used in the document",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			doc, err := openDocument(cmd)
			if err != nil {
				return err
			}
			defer doc.Close()

			groups := doc.AllTextStyles()
			keys := make([]string, 0, len(groups))
			for k := range groups {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				return groups[keys[i]].Count > groups[keys[j]].Count
			})

			for _, k := range keys {
				g := groups[k]
				fmt.Printf("%4d  %s\n", g.Count, g.Style)
				for _, sample := range g.Samples {
					fmt.Printf("      %q\n", sample)
				}
			}
			return nil
		},
	}
}

func tablesCommand() *cli.Command {
	return &cli.Command{
		Name:      "tables",
		Usage:     "list detected tables and their content",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			doc, err := openDocument(cmd)
			if err != nil {
				return err
			}
			defer doc.Close()

			for i, t := range doc.Tables() {
				fmt.Printf("table %d: page %d, %dx%d\n", i, t.PageIndex, t.NumRows(), t.NumCols())
				for _, row := range t.Content() {
					fmt.Printf("  %q\n", row)
				}
			}
			return nil
		},
	}
}

func replaceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "output file"},
		&cli.BoolFlag{Name: "plain", Usage: "draw replacements in a plain style"},
		&cli.BoolFlag{Name: "any-case", Usage: "match case-insensitively"},
	}
}

func replacementOptions(cmd *cli.Command) []pdfstyle.ReplaceOption {
	var opts []pdfstyle.ReplaceOption
	if cmd.Bool("plain") {
		opts = append(opts, pdfstyle.PlainStyle())
	}
	if cmd.Bool("any-case") {
		opts = append(opts, pdfstyle.MatchAnyCase())
	}
	return opts
}

func replaceCommand() *cli.Command {
	return &cli.Command{
		Name:      "replace",
		Usage:     "replace every occurrence of a text across the document",
		ArgsUsage: "FILE OLD NEW",
		Flags:     replaceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 3 {
				return fmt.Errorf("expected FILE OLD NEW arguments")
			}
			doc, err := openDocument(cmd)
			if err != nil {
				return err
			}
			defer doc.Close()

			n := doc.ReplaceText(cmd.Args().Get(1), cmd.Args().Get(2), replacementOptions(cmd)...)
			fmt.Printf("replaced in %d containers\n", n)
			return doc.Save(cmd.String("out"))
		},
	}
}

func replaceRegionCommand() *cli.Command {
	return &cli.Command{
		Name:      "replace-region",
		Usage:     "replace text only inside a page region",
		ArgsUsage: "FILE OLD NEW",
		Flags: append(replaceFlags(),
			&cli.IntFlag{Name: "page", Required: true, Usage: "page index (0-based)"},
			&cli.Float64Flag{Name: "x0", Required: true},
			&cli.Float64Flag{Name: "y0", Required: true},
			&cli.Float64Flag{Name: "x1", Required: true},
			&cli.Float64Flag{Name: "y1", Required: true},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 3 {
				return fmt.Errorf("expected FILE OLD NEW arguments")
			}
			doc, err := openDocument(cmd)
			if err != nil {
				return err
			}
			defer doc.Close()

			region := pdfstyle.BoundingBox{
				X0: cmd.Float64("x0"), Y0: cmd.Float64("y0"),
				X1: cmd.Float64("x1"), Y1: cmd.Float64("y1"),
			}
			n := doc.ReplaceTextInRegion(cmd.Int("page"), region,
				cmd.Args().Get(1), cmd.Args().Get(2), replacementOptions(cmd)...)
			fmt.Printf("replaced in %d containers\n", n)
			return doc.Save(cmd.String("out"))
		},
	}
}

func replaceTableCommand() *cli.Command {
	return &cli.Command{
		Name:      "replace-table",
		Usage:     "replace a table's content with new rows",
		ArgsUsage: "FILE",
		Flags: append(replaceFlags(),
			&cli.IntFlag{Name: "index", Value: -1, Usage: "table index"},
			&cli.StringFlag{Name: "match", Usage: "replace the first table containing this text"},
			&cli.StringFlag{Name: "data", Required: true, Usage: `new rows as JSON, e.g. '[["a","b"],["c","d"]]'`},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var data [][]string
			if err := json.Unmarshal([]byte(cmd.String("data")), &data); err != nil {
				return fmt.Errorf("parsing --data: %w", err)
			}

			doc, err := openDocument(cmd)
			if err != nil {
				return err
			}
			defer doc.Close()

			opts := replacementOptions(cmd)
			switch {
			case cmd.String("match") != "":
				if !doc.ReplaceTableByContent(cmd.String("match"), data, opts...) {
					return fmt.Errorf("no table contains %q", cmd.String("match"))
				}
			case cmd.Int("index") >= 0:
				if err := doc.ReplaceTable(cmd.Int("index"), data, opts...); err != nil {
					return err
				}
			default:
				return fmt.Errorf("either --index or --match is required")
			}
			return doc.Save(cmd.String("out"))
		},
	}
}

// demoCommand writes a small styled sample file for trying the other
// subcommands.
func demoCommand() *cli.Command {
	return &cli.Command{
		Name:      "demo",
		Usage:     "generate a sample styled PDF",
		ArgsUsage: "OUT",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Args().First()
			if out == "" {
				return fmt.Errorf("missing output file argument")
			}

			f := gofpdf.New("P", "pt", "A4", "")
			f.AddPage()

			f.SetFont("Helvetica", "B", 18)
			f.SetTextColor(0, 0, 128)
			f.Text(72, 90, "Quarterly Report")

			f.SetFont("Helvetica", "", 11)
			f.SetTextColor(0, 0, 0)
			f.Text(72, 120, "Prepared by ACME Corp on 2024-03-31.")

			f.SetFont("Helvetica", "B", 11)
			headers := []string{"Region", "Revenue", "Growth"}
			for i, h := range headers {
				f.Text(72+float64(i)*120, 160, h)
			}
			f.SetFont("Helvetica", "", 11)
			rows := [][]string{
				{"North", "1,200", "+4%"},
				{"South", "980", "-1%"},
				{"West", "1,430", "+9%"},
			}
			for r, row := range rows {
				for c, cell := range row {
					f.Text(72+float64(c)*120, 180+float64(r)*20, cell)
				}
			}

			return f.OutputFileAndClose(out)
		},
	}
}
