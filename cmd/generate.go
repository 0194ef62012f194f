package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xschemadev/gerrit-dash/generator"
	"github.com/xschemadev/gerrit-dash/loader"
	"github.com/xschemadev/gerrit-dash/parser"
	"github.com/xschemadev/gerrit-dash/renderer"
	"github.com/xschemadev/gerrit-dash/ui"
)

var (
	checkOnly  bool
	outputFile string
)

var generateCmd = &cobra.Command{
	Use:   "generate PATH...",
	Short: "Generate dashboard URLs from definition files or directories",
	Long: `Generate reads each dashboard definition, builds its Gerrit dashboard URL
and renders it through a template. Directories are searched recursively for
*` + loader.DefaultSuffix + ` files.

Builtin templates: ` + strings.Join(renderer.Builtins(), ", "),
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVar(&checkOnly, "check-only", false, "validate definitions without printing URLs")
	generateCmd.Flags().String("template", renderer.DefaultTemplate, "template name, builtin or in --template-directory")
	generateCmd.Flags().String("template-file", "", "template file path (overrides --template)")
	generateCmd.Flags().String("template-directory", "", "directory searched for --template")
	generateCmd.Flags().String("escape", generator.EscapeComma.String(), "escape policy: comma or comma-hyphen")
	generateCmd.Flags().String("base-url", "", "base URL for definitions without baseurl (default "+generator.DefaultBaseURL+")")
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write rendered output to a file instead of stdout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	policy, err := generator.ParseEscapePolicy(conf.Escape)
	if err != nil {
		ui.ErrorMsg("Invalid escape policy", err)
		return err
	}
	opts := generator.Options{BaseURL: conf.BaseURL, Escape: policy}

	var tmpl *renderer.Renderer
	if !checkOnly {
		tmpl, err = renderer.Load(appFs, renderer.Source{
			File:      conf.TemplateFile,
			Directory: conf.TemplateDirectory,
			Name:      conf.Template,
		})
		if err != nil {
			ui.ErrorMsg("Failed to load template", err, "Builtin templates: "+strings.Join(renderer.Builtins(), ", "))
			return err
		}
		ui.Verbosef("rendering with template %s", tmpl.Name())
	}

	l := loader.New(appFs)
	files, err := l.Resolve(args)
	if err != nil {
		ui.ErrorMsg("Failed to scan for dashboard definitions", err)
		return err
	}
	if len(files) == 0 {
		ui.WarnMsg("No dashboard definitions found")
		return nil
	}
	ui.Verbosef("found %s", ui.Plural(len(files), "definition", "definitions"))

	var buf bytes.Buffer
	var w io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		w = &buf
	}

	failed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := generateOne(l, file, opts, tmpl, w); err != nil {
			ui.ErrorMsg(file, err)
			failed++
			continue
		}
		ui.Verbosef("%s ok", file)
	}

	if outputFile != "" && buf.Len() > 0 {
		if err := renderer.WriteOutput(appFs, outputFile, buf.Bytes()); err != nil {
			ui.ErrorMsg("Failed to write output", err)
			return err
		}
		ui.Verbosef("wrote %s", outputFile)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %s failed", failed, ui.Plural(len(files), "dashboard", "dashboards"))
	}
	if checkOnly {
		ui.SuccessMsg(fmt.Sprintf("%s valid (%s)", ui.Plural(len(files), "dashboard", "dashboards"), ui.FormatDuration(time.Since(start))))
	}
	return nil
}

// generateOne loads, validates and renders one definition file. With no
// renderer the URL is built for validation only.
func generateOne(l *loader.Loader, file string, opts generator.Options, tmpl *renderer.Renderer, w io.Writer) error {
	def, err := l.LoadFile(file)
	if err != nil {
		return err
	}

	url, err := generator.Generate(def, opts)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return nil
	}

	return tmpl.Render(w, templateVariables(def, url))
}

func templateVariables(def *parser.Definition, url string) renderer.Variables {
	title, _ := def.Get(parser.DashboardSection, "title")
	description, _ := def.Get(parser.DashboardSection, "description")
	return renderer.Variables{
		URL:           url,
		Title:         title,
		Description:   description,
		Configuration: def.String(),
		Path:          def.Path(),
	}
}
