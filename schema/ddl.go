package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/weftdb/weft"
	"github.com/weftdb/weft/dialect"
)

// columnType maps a column to its DDL type per dialect.
func columnType(d string, c *Column) (string, error) {
	switch c.typ {
	case TypeInt, TypeInt64:
		switch d {
		case dialect.Postgres:
			if c.auto {
				if c.typ == TypeInt64 {
					return "bigserial", nil
				}
				return "serial", nil
			}
			if c.typ == TypeInt64 {
				return "bigint", nil
			}
			return "integer", nil
		case dialect.MySQL:
			t := "int"
			if c.typ == TypeInt64 {
				t = "bigint"
			}
			if c.auto {
				t += " AUTO_INCREMENT"
			}
			return t, nil
		default: // sqlite
			return "integer", nil
		}
	case TypeFloat:
		if d == dialect.SQLite {
			return "real", nil
		}
		return "double precision", nil
	case TypeString:
		if c.size > 0 {
			return "varchar(" + strconv.Itoa(c.size) + ")", nil
		}
		if d == dialect.MySQL {
			return "varchar(255)", nil
		}
		return "text", nil
	case TypeBool:
		return "boolean", nil
	case TypeTime:
		switch d {
		case dialect.Postgres:
			return "timestamp with time zone", nil
		case dialect.MySQL:
			return "datetime", nil
		default:
			return "datetime", nil
		}
	case TypeUUID:
		switch d {
		case dialect.Postgres:
			return "uuid", nil
		case dialect.MySQL:
			return "char(36)", nil
		default:
			return "text", nil
		}
	case TypeBytes:
		switch d {
		case dialect.Postgres:
			return "bytea", nil
		default:
			return "blob", nil
		}
	}
	return "", weft.NewSchemaError(nil, "", c.name, fmt.Sprintf("no %s mapping for type %s", d, c.typ))
}

func quoteIdent(d, s string) string {
	if d == dialect.Postgres {
		return `"` + s + `"`
	}
	return "`" + s + "`"
}

// defaultLiteral renders a constant default value into DDL.
func defaultLiteral(v any) string {
	switch v := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + v.UTC().Format("2006-01-02 15:04:05") + "'"
	default:
		return fmt.Sprint(v)
	}
}

// createTable renders the CREATE TABLE IF NOT EXISTS statement for t.
func createTable(d string, t *Table) (string, error) {
	var (
		sb   strings.Builder
		defs []string
	)
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(quoteIdent(d, t.name))
	sb.WriteString(" (")
	pk := t.PrimaryKey()
	for _, c := range t.columns {
		typ, err := columnType(d, c)
		if err != nil {
			return "", err
		}
		def := quoteIdent(d, c.name) + " " + typ
		// sqlite requires the autoincrement marker inline with the
		// primary-key clause of the single key column.
		if d == dialect.SQLite && c.auto && c.primary && len(pk) == 1 {
			def += " PRIMARY KEY AUTOINCREMENT"
		} else if !c.nullable && !c.primary {
			def += " NOT NULL"
		}
		if v := c.defaultVal; v != nil {
			def += " DEFAULT " + defaultLiteral(v)
		}
		if c.unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	if len(pk) > 0 && !(d == dialect.SQLite && len(pk) == 1 && pk[0].auto) {
		cols := make([]string, len(pk))
		for i, c := range pk {
			cols[i] = quoteIdent(d, c.name)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(cols, ", ")+")")
	}
	for _, fk := range t.fks {
		def := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdent(d, fk.Column), quoteIdent(d, fk.RefTable), quoteIdent(d, fk.RefColumn))
		if fk.OnDelete != NoAction {
			def += " ON DELETE " + fk.OnDelete.String()
		}
		defs = append(defs, def)
	}
	sb.WriteString(strings.Join(defs, ", "))
	sb.WriteString(")")
	return sb.String(), nil
}

// EmitDDL renders idempotent CREATE TABLE IF NOT EXISTS statements for
// every registered table, in dependency order.
func (r *Registry) EmitDDL(d string) ([]string, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	ordered, err := r.Order()
	if err != nil {
		return nil, err
	}
	stmts := make([]string, 0, len(ordered))
	for _, t := range ordered {
		stmt, err := createTable(d, t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// Emit executes the DDL against the given driver and freezes the
// registry, after which schema mutation fails with ErrFrozen. Emitted
// DDL is bootstrap-only; schema migration is out of scope.
func (r *Registry) Emit(ctx context.Context, drv dialect.Driver) error {
	stmts, err := r.EmitDDL(drv.Dialect())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("emit schema: %w", err)
		}
		slog.Debug("emitted table", "stmt", stmt)
	}
	r.freeze()
	return nil
}
