package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/registry"
)

func newEntitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entities that have a form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENTITY\tTITLE\tFIELDS\tUPSERT")
			for _, entity := range a.registry.Entities() {
				form := a.registry.MustForm(entity)
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", entity, form.Title, len(form.Fields), form.Endpoints.Upsert)
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <entity>",
		Short: "Describe an entity form: fields, dependencies and cross-field rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, ok := a.registry.Form(args[0])
			if !ok {
				return fmt.Errorf("%w %q", registry.ErrUnknownEntity, args[0])
			}
			return describeForm(cmd.OutOrStdout(), form)
		},
	}
}

func describeForm(out io.Writer, form model.Form) error {
	fmt.Fprintf(out, "%s (%s)\n", form.Title, form.Entity)
	fmt.Fprintf(out, "upsert: %s", form.Endpoints.Upsert)
	if form.HasFileField() {
		fmt.Fprint(out, " [multipart]")
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tKIND\tREQUIRED\tSOURCE")
	for _, field := range form.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", field.Name, field.Kind, field.Required, fieldSource(field))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, rule := range form.Rules {
		fmt.Fprintf(out, "rule %s\n", describeRule(rule))
	}
	return nil
}

func fieldSource(field model.Field) string {
	var parts []string
	if field.Lookup != "" {
		parts = append(parts, "lookup:"+field.Lookup)
	}
	if field.DependsOn != "" {
		parts = append(parts, "depends:"+field.DependsOn)
	}
	if field.IsFile() {
		gate := field.Gate
		if gate == "" {
			gate = model.GateImage
		}
		parts = append(parts, "gate:"+gate)
	}
	if len(field.Options) > 0 {
		parts = append(parts, fmt.Sprintf("options:%d", len(field.Options)))
	}
	return strings.Join(parts, " ")
}

func describeRule(rule model.Rule) string {
	switch rule.Kind {
	case model.RuleDateRange:
		return fmt.Sprintf("%s %s < %s", rule.Kind, rule.Start, rule.End)
	case model.RuleRequiredWhen:
		return fmt.Sprintf("%s %s when %s", rule.Kind, rule.Field, rule.When)
	case model.RuleLookupMember:
		return fmt.Sprintf("%s %s in %s", rule.Kind, rule.Field, rule.Lookup)
	default:
		return fmt.Sprintf("%s %s", rule.Kind, rule.Field)
	}
}

func newImportCmd(a *app) *cobra.Command {
	var (
		source     string
		operations []string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Derive entity schemas from OpenAPI operations",
		Long: `Reads an OpenAPI 3 document (file path or URL) and writes a schema file
with one form per operation, ready for forms.schema_dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readSource(cmd, source)
			if err != nil {
				return err
			}
			forms := make([]model.Form, 0, len(operations))
			for _, id := range operations {
				form, err := registry.FromOpenAPI(cmd.Context(), raw, id)
				if err != nil {
					return err
				}
				forms = append(forms, form)
			}
			data, err := registry.EncodeYAML(forms...)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "OpenAPI document path or URL")
	cmd.Flags().StringSliceVar(&operations, "operation", nil, "operation ID to import (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("operation")
	return cmd
}

func readSource(cmd *cobra.Command, raw string) ([]byte, error) {
	path := strings.TrimSpace(raw)
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch source: %s returned %s", path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
