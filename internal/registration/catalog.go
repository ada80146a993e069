package registration

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/liveregister/pkg/forms"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrUnknownOption is returned for a value missing from a catalog list.
var ErrUnknownOption = errors.New("registration: unknown option")

// Catalog holds the option lists the forms are built from.
type Catalog struct {
	Positions []forms.Option `yaml:"positions"`
	Skills    []forms.Option `yaml:"skills"`
	Guest     []forms.Option `yaml:"guest"`
}

// ParseCatalog decodes a YAML catalog and checks that every list is
// present and free of duplicate values.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("registration: decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registration: open catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := ParseCatalog(bytes.NewReader(defaultCatalog))
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

func (c *Catalog) validate() error {
	lists := []struct {
		name    string
		options []forms.Option
	}{
		{"positions", c.Positions},
		{"skills", c.Skills},
		{"guest", c.Guest},
	}
	for _, l := range lists {
		if len(l.options) == 0 {
			return fmt.Errorf("registration: catalog list %q is empty", l.name)
		}
		seen := make(map[string]bool, len(l.options))
		for _, o := range l.options {
			if o.Value == "" {
				return fmt.Errorf("registration: catalog list %q has an empty value", l.name)
			}
			if seen[o.Value] {
				return fmt.Errorf("registration: catalog list %q repeats %q", l.name, o.Value)
			}
			seen[o.Value] = true
		}
	}
	for _, o := range c.Positions {
		if _, ok := positionDependents[o.Value]; !ok {
			return fmt.Errorf("registration: catalog position %q has no form rules", o.Value)
		}
	}
	if !hasOption(c.Guest, "yes") || !hasOption(c.Guest, "no") {
		return errors.New(`registration: catalog guest list must hold "yes" and "no"`)
	}
	return nil
}

func hasOption(options []forms.Option, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}
