package schema

import (
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"

	"github.com/weftdb/weft"
)

// yamlSchema is the on-disk declarative schema format.
//
//	tables:
//	  - entity: User            # table name derived: users
//	    columns:
//	      - {name: id, type: int, primary: true, auto: true}
//	      - {name: name, type: string, size: 100}
//	  - name: addresses         # explicit table name
//	    columns:
//	      - {name: id, type: int, primary: true, auto: true}
//	      - {name: user_id, type: int}
//	      - {name: email, type: string, unique: true}
//	    foreign_keys:
//	      - {column: user_id, references: users.id, on_delete: cascade}
type yamlSchema struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name        string       `yaml:"name"`
	Entity      string       `yaml:"entity"`
	Columns     []yamlColumn `yaml:"columns"`
	ForeignKeys []yamlFK     `yaml:"foreign_keys"`
}

type yamlColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Primary  bool   `yaml:"primary"`
	Auto     bool   `yaml:"auto"`
	Nullable bool   `yaml:"nullable"`
	Unique   bool   `yaml:"unique"`
	Size     int    `yaml:"size"`
	Default  any    `yaml:"default"`
}

type yamlFK struct {
	Column     string `yaml:"column"`
	References string `yaml:"references"` // table.column
	OnDelete   string `yaml:"on_delete"`
}

// TableNameFor derives the conventional table name for an entity name:
// underscored and pluralized, e.g. "OrderItem" becomes "order_items".
func TableNameFor(entity string) string {
	return inflect.Pluralize(inflect.Underscore(entity))
}

// LoadYAML parses a declarative schema document and returns a registry
// with all tables defined and cross-validated. Table names may be
// given explicitly or derived from the entity name.
func LoadYAML(data []byte) (*Registry, error) {
	var doc yamlSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("weft: schema: parse yaml: %w", err)
	}
	r := NewRegistry()
	for _, yt := range doc.Tables {
		t, err := tableFromYAML(yt)
		if err != nil {
			return nil, err
		}
		if err := r.Define(t); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func tableFromYAML(yt yamlTable) (*Table, error) {
	name := yt.Name
	if name == "" {
		if yt.Entity == "" {
			return nil, weft.NewSchemaError(nil, "", "", "table needs a name or an entity")
		}
		name = TableNameFor(yt.Entity)
	}
	cols := make([]*Column, 0, len(yt.Columns))
	for _, yc := range yt.Columns {
		typ := ParseType(yc.Type)
		if typ == TypeInvalid {
			return nil, weft.NewSchemaError(nil, name, yc.Name, fmt.Sprintf("unknown column type %q", yc.Type))
		}
		c := newColumn(yc.Name, typ)
		if yc.Primary {
			c.Primary()
		}
		if yc.Auto {
			c.Auto()
		}
		if yc.Nullable {
			c.Nullable()
		}
		if yc.Unique {
			c.Unique()
		}
		if yc.Size > 0 {
			c.MaxLen(yc.Size)
		}
		if yc.Default != nil {
			c.Default(yc.Default)
		}
		cols = append(cols, c)
	}
	t := New(name, cols...)
	for _, yfk := range yt.ForeignKeys {
		refTable, refColumn, ok := strings.Cut(yfk.References, ".")
		if !ok {
			return nil, weft.NewSchemaError(nil, name, yfk.Column,
				fmt.Sprintf("references %q must have the form table.column", yfk.References))
		}
		t.ForeignKey(yfk.Column, refTable, refColumn)
		switch strings.ToLower(yfk.OnDelete) {
		case "", "no_action", "no action":
		case "cascade":
			t.OnDelete(Cascade)
		case "set_null", "set null":
			t.OnDelete(SetNull)
		case "restrict":
			t.OnDelete(Restrict)
		default:
			return nil, weft.NewSchemaError(nil, name, yfk.Column,
				fmt.Sprintf("unknown on_delete action %q", yfk.OnDelete))
		}
	}
	return t, nil
}
