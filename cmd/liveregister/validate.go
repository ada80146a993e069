package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/liveregister/internal/registration"
	"github.com/gabrielmiguelok/liveregister/pkg/forms"
)

// errInvalid reports a values file that failed validation.
var errInvalid = errors.New("registration is invalid")

func newValidateCmd() *cobra.Command {
	var (
		formKey     string
		catalogPath string
	)
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a JSON or YAML values file against a form",
		Long: "Validate a JSON or YAML values file against form a or b. Skills are\n" +
			"read from a \"skills\" (or \"skill\") list. Issues are printed one per line.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}
			form, err := registration.Lookup(formKey, cat)
			if err != nil {
				return err
			}
			values, skills, err := readValuesFile(args[0])
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), form, values, skills)
		},
	}
	cmd.Flags().StringVar(&formKey, "form", "a", "Form to validate against: a or b")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Option catalog file (default embedded)")
	return cmd
}

func runValidate(w io.Writer, form *registration.Form, values forms.Values, skills []string) error {
	for _, s := range skills {
		if _, err := form.Skill(s); err != nil {
			return err
		}
	}
	res := form.Check(values, skills)
	if !res.Valid() {
		for _, issue := range res.Issues {
			fmt.Fprintln(w, issue.String())
		}
		return fmt.Errorf("%w: %d issue(s)", errInvalid, len(res.Issues))
	}

	fmt.Fprintln(w, "valid")
	var set *forms.SelectionSet
	if form.HasSkills() {
		set = forms.NewSelectionSet(skills...)
	}
	for _, e := range form.Preview(res.Values, set) {
		fmt.Fprintf(w, "%s : %s\n", e.Key, e.Value)
	}
	return nil
}

// readValuesFile decodes a values document. Files ending in .json are
// read as JSON, everything else as YAML.
func readValuesFile(path string) (forms.Values, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read values: %w", err)
	}

	raw := map[string]any{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode values %s: %w", filepath.Base(path), err)
	}

	var skills []string
	for _, key := range []string{"skills", "skill"} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		delete(raw, key)
		list, err := skillList(v)
		if err != nil {
			return nil, nil, err
		}
		skills = append(skills, list...)
	}
	return forms.Values(raw), skills, nil
}

func skillList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("skills must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("skills must be a list, got %T", v)
}
