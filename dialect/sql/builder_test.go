package sql

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftdb/weft"
	"github.com/weftdb/weft/dialect"
)

func TestBuilder(t *testing.T) {
	tests := []struct {
		input     Querier
		wantQuery string
		wantArgs  []any
	}{
		{
			input:     Dialect(dialect.Postgres).Select("id", "name").From(Table("users")),
			wantQuery: `SELECT "id", "name" FROM "users"`,
		},
		{
			input:     Dialect(dialect.MySQL).Select("id", "name").From(Table("users")),
			wantQuery: "SELECT `id`, `name` FROM `users`",
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")),
			wantQuery: "SELECT * FROM `users`",
		},
		{
			input: Dialect(dialect.Postgres).Select("name").
				From(Table("users")).
				Where(EQ("id", 1)),
			wantQuery: `SELECT "name" FROM "users" WHERE "id" = $1`,
			wantArgs:  []any{1},
		},
		{
			input: Dialect(dialect.MySQL).Select("name").
				From(Table("users")).
				Where(EQ("id", 1)),
			wantQuery: "SELECT `name` FROM `users` WHERE `id` = ?",
			wantArgs:  []any{1},
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(And(GTE("age", 21), NEQ("status", "blocked"))),
			wantQuery: `SELECT * FROM "users" WHERE "age" >= $1 AND "status" <> $2`,
			wantArgs:  []any{21, "blocked"},
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(Or(LT("age", 18), GT("age", 65))),
			wantQuery: `SELECT * FROM "users" WHERE ("age" < $1 OR "age" > $2)`,
			wantArgs:  []any{18, 65},
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(And(EQ("active", true), Or(EQ("role", "admin"), EQ("role", "owner")))),
			wantQuery: `SELECT * FROM "users" WHERE "active" = $1 AND ("role" = $2 OR "role" = $3)`,
			wantArgs:  []any{true, "admin", "owner"},
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(Not(EQ("deleted", true))),
			wantQuery: `SELECT * FROM "users" WHERE NOT ("deleted" = $1)`,
			wantArgs:  []any{true},
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(In("id", 1, 2, 3)),
			wantQuery: `SELECT * FROM "users" WHERE "id" IN ($1, $2, $3)`,
			wantArgs:  []any{1, 2, 3},
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(In("id")),
			wantQuery: `SELECT * FROM "users" WHERE FALSE`,
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(NotIn("id")),
			wantQuery: `SELECT * FROM "users" WHERE TRUE`,
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(And(IsNull("deleted_at"), NotNull("email"))),
			wantQuery: `SELECT * FROM "users" WHERE "deleted_at" IS NULL AND "email" IS NOT NULL`,
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(Contains("name", "50%")),
			wantQuery: `SELECT * FROM "users" WHERE "name" LIKE $1`,
			wantArgs:  []any{`%50\%%`},
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(HasPrefix("name", "sq")),
			wantQuery: `SELECT * FROM "users" WHERE "name" LIKE $1`,
			wantArgs:  []any{"sq%"},
		},
		{
			input: Dialect(dialect.Postgres).Select("*").
				From(Table("users")).
				Where(ExprP("age + ? > ?", 1, 21)),
			wantQuery: `SELECT * FROM "users" WHERE age + $1 > $2`,
			wantArgs:  []any{1, 21},
		},
		{
			input: Dialect(dialect.Postgres).Select("name").
				From(Table("users")).
				Distinct().
				OrderBy("name", Desc("id")).
				Limit(10).
				Offset(20),
			wantQuery: `SELECT DISTINCT "name" FROM "users" ORDER BY "name", "id" DESC LIMIT 10 OFFSET 20`,
		},
		{
			input: Dialect(dialect.Postgres).Select().
				From(Table("users")).
				Count(),
			wantQuery: `SELECT COUNT(*) FROM "users"`,
		},
		{
			input: func() Querier {
				users := Table("users").As("u")
				return Dialect(dialect.Postgres).Select("*").
					From(users).
					OrderBy(Asc("name"), Desc(users.C("id")))
			}(),
			wantQuery: `SELECT * FROM "users" AS "u" ORDER BY "name" ASC, "u"."id" DESC`,
		},
		{
			input: Dialect(dialect.MySQL).Select("*").
				From(Table("users")).
				OrderBy(Desc("created_at")),
			wantQuery: "SELECT * FROM `users` ORDER BY `created_at` DESC",
		},
		{
			input: Dialect(dialect.Postgres).Select("role", "COUNT(*)").
				From(Table("users")).
				GroupBy("role").
				Having(GT("COUNT(*)", 10)),
			wantQuery: `SELECT "role", COUNT(*) FROM "users" GROUP BY "role" HAVING COUNT(*) > $1`,
			wantArgs:  []any{10},
		},
		{
			input: func() Querier {
				users := Table("users").As("u")
				addresses := Table("addresses").As("a")
				return Dialect(dialect.Postgres).
					Select(users.C("name"), addresses.C("email_address")).
					From(users).
					Join(addresses).
					On(addresses.C("user_id"), users.C("id"))
			}(),
			wantQuery: `SELECT "u"."name", "a"."email_address" FROM "users" AS "u" JOIN "addresses" AS "a" ON "a"."user_id" = "u"."id"`,
		},
		{
			input: func() Querier {
				users := Table("users")
				addresses := Table("addresses")
				return Dialect(dialect.Postgres).
					Select("*").
					From(users).
					LeftJoin(addresses).
					On(addresses.C("user_id"), users.C("id")).
					Where(IsNull(addresses.C("id")))
			}(),
			wantQuery: `SELECT * FROM "users" LEFT JOIN "addresses" ON "addresses"."user_id" = "users"."id" WHERE "addresses"."id" IS NULL`,
		},
		{
			input: Dialect(dialect.Postgres).Insert("users").
				Columns("name", "age").
				Values("sandy", 31),
			wantQuery: `INSERT INTO "users" ("name", "age") VALUES ($1, $2)`,
			wantArgs:  []any{"sandy", 31},
		},
		{
			input: Dialect(dialect.Postgres).Insert("users").
				Columns("name").
				Values("sandy").
				Values("patrick"),
			wantQuery: `INSERT INTO "users" ("name") VALUES ($1), ($2)`,
			wantArgs:  []any{"sandy", "patrick"},
		},
		{
			input: Dialect(dialect.Postgres).Insert("users").
				Columns("name").
				Values("sandy").
				Returning("id"),
			wantQuery: `INSERT INTO "users" ("name") VALUES ($1) RETURNING "id"`,
			wantArgs:  []any{"sandy"},
		},
		{
			input:     Dialect(dialect.Postgres).Insert("users").Default(),
			wantQuery: `INSERT INTO "users" DEFAULT VALUES`,
		},
		{
			input:     Dialect(dialect.MySQL).Insert("users").Default(),
			wantQuery: "INSERT INTO `users` () VALUES ()",
		},
		{
			input: Dialect(dialect.MySQL).Insert("users").
				Columns("name").
				Values("sandy"),
			wantQuery: "INSERT INTO `users` (`name`) VALUES (?)",
			wantArgs:  []any{"sandy"},
		},
		{
			input: Dialect(dialect.Postgres).Update("users").
				Set("name", "sandy").
				Set("age", 31).
				Where(EQ("id", 1)),
			wantQuery: `UPDATE "users" SET "name" = $1, "age" = $2 WHERE "id" = $3`,
			wantArgs:  []any{"sandy", 31, 1},
		},
		{
			input: Dialect(dialect.Postgres).Update("users").
				Add("visits", 1).
				Where(EQ("id", 7)),
			wantQuery: `UPDATE "users" SET "visits" = "visits" + $1 WHERE "id" = $2`,
			wantArgs:  []any{1, 7},
		},
		{
			input: Dialect(dialect.MySQL).Update("users").
				Set("name", "sandy").
				Where(And(EQ("id", 1), EQ("active", true))),
			wantQuery: "UPDATE `users` SET `name` = ? WHERE `id` = ? AND `active` = ?",
			wantArgs:  []any{"sandy", 1, true},
		},
		{
			input: Dialect(dialect.Postgres).Delete("users").
				Where(EQ("id", 1)),
			wantQuery: `DELETE FROM "users" WHERE "id" = $1`,
			wantArgs:  []any{1},
		},
		{
			input:     Dialect(dialect.Postgres).Delete("users"),
			wantQuery: `DELETE FROM "users"`,
		},
		{
			input: Dialect(dialect.Postgres).Delete("addresses").
				Where(EQ("user_id", 1)).
				Returning("id"),
			wantQuery: `DELETE FROM "addresses" WHERE "user_id" = $1 RETURNING "id"`,
			wantArgs:  []any{1},
		},
	}
	for i, tt := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			require.NoError(t, tt.input.Err())
			query, args := tt.input.Query()
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

// Chained Where calls and a single And over the same operands must
// compile to identical text and arguments.
func TestWhereEquivalence(t *testing.T) {
	a, b := EQ("name", "sandy"), GT("age", 21)
	chained := Dialect(dialect.Postgres).Select("*").From(Table("users")).Where(a).Where(b)
	combined := Dialect(dialect.Postgres).Select("*").From(Table("users")).Where(And(a, b))

	q1, args1 := chained.Query()
	q2, args2 := combined.Query()
	assert.Equal(t, q1, q2)
	assert.Equal(t, args1, args2)
}

// A partially built statement is a reusable base: deriving two variants
// from it must not let either variant observe the other.
func TestBuilderReuse(t *testing.T) {
	base := Dialect(dialect.Postgres).Select("id").From(Table("users"))
	young := base.Where(LT("age", 30))
	old := base.Where(GTE("age", 30)).OrderBy("age")

	q, args := base.Query()
	assert.Equal(t, `SELECT "id" FROM "users"`, q)
	assert.Empty(t, args)

	q, args = young.Query()
	assert.Equal(t, `SELECT "id" FROM "users" WHERE "age" < $1`, q)
	assert.Equal(t, []any{30}, args)

	q, args = old.Query()
	assert.Equal(t, `SELECT "id" FROM "users" WHERE "age" >= $1 ORDER BY "age"`, q)
	assert.Equal(t, []any{30}, args)

	ins := Dialect(dialect.Postgres).Insert("users").Columns("name")
	v1 := ins.Values("sandy")
	v2 := ins.Values("patrick")
	_, args = v1.Query()
	assert.Equal(t, []any{"sandy"}, args)
	_, args = v2.Query()
	assert.Equal(t, []any{"patrick"}, args)

	upd := Dialect(dialect.Postgres).Update("users").Set("active", true)
	u1 := upd.Where(EQ("id", 1))
	u2 := upd.Where(EQ("id", 2))
	_, args = u1.Query()
	assert.Equal(t, []any{true, 1}, args)
	_, args = u2.Query()
	assert.Equal(t, []any{true, 2}, args)
}

// Compilation is deterministic: the same statement renders the same
// text and arguments on every call.
func TestCompileDeterministic(t *testing.T) {
	sel := Dialect(dialect.Postgres).Select("id", "name").
		From(Table("users")).
		Where(And(EQ("active", true), In("role", "admin", "owner"))).
		OrderBy("id").
		Limit(5)
	q1, args1 := sel.Query()
	q2, args2 := sel.Query()
	assert.Equal(t, q1, q2)
	assert.Equal(t, args1, args2)
}

func TestCompileErrors(t *testing.T) {
	t.Run("select_missing_target", func(t *testing.T) {
		err := Dialect(dialect.Postgres).Select("id").Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, weft.ErrMissingTarget)
	})
	t.Run("join_without_condition", func(t *testing.T) {
		err := Dialect(dialect.Postgres).Select("*").
			From(Table("users")).
			Join(Table("addresses")).
			Err()
		require.Error(t, err)
		assert.True(t, weft.IsCompileError(err))
	})
	t.Run("insert_no_values", func(t *testing.T) {
		err := Dialect(dialect.Postgres).Insert("users").Err()
		require.Error(t, err)
		assert.True(t, weft.IsCompileError(err))
	})
	t.Run("insert_missing_target", func(t *testing.T) {
		err := Dialect(dialect.Postgres).Insert("").Columns("a").Values(1).Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, weft.ErrMissingTarget)
	})
	t.Run("insert_column_count", func(t *testing.T) {
		err := Dialect(dialect.Postgres).Insert("users").
			Columns("a", "b").
			Values(1).
			Err()
		require.Error(t, err)
		assert.True(t, weft.IsCompileError(err))
	})
	t.Run("insert_returning_mysql", func(t *testing.T) {
		err := Dialect(dialect.MySQL).Insert("users").
			Columns("a").
			Values(1).
			Returning("id").
			Err()
		require.Error(t, err)
		assert.True(t, weft.IsCompileError(err))
	})
	t.Run("update_empty_set", func(t *testing.T) {
		err := Dialect(dialect.Postgres).Update("users").Where(EQ("id", 1)).Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, weft.ErrEmptyValues)
	})
	t.Run("delete_returning_mysql", func(t *testing.T) {
		err := Dialect(dialect.MySQL).Delete("users").
			Where(EQ("id", 1)).
			Returning("id").
			Err()
		require.Error(t, err)
		assert.True(t, weft.IsCompileError(err))
	})
	t.Run("delete_missing_target", func(t *testing.T) {
		err := Dialect(dialect.Postgres).Delete("").Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, weft.ErrMissingTarget)
	})
	t.Run("valid_statements", func(t *testing.T) {
		assert.NoError(t, Dialect(dialect.Postgres).Select("*").From(Table("users")).Err())
		assert.NoError(t, Dialect(dialect.Postgres).Insert("users").Default().Err())
		assert.NoError(t, Dialect(dialect.Postgres).Update("users").Set("a", 1).Err())
		assert.NoError(t, Dialect(dialect.Postgres).Delete("users").Err())
	})
}
