package store

import (
	"database/sql"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringsToArgs converts []string to []any for use with database/sql.
func stringsToArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// nullString stores "" as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// literalColumns splits an optional literal into its value_kind and
// value_text columns; nil becomes two NULLs.
func literalColumns(l *Literal) (sql.NullString, sql.NullString) {
	if l == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: string(l.Kind), Valid: true}, sql.NullString{String: l.Text, Valid: true}
}

func scanLiteral(kind, text sql.NullString) *Literal {
	if !kind.Valid {
		return nil
	}
	return &Literal{Kind: LiteralKind(kind.String), Text: text.String}
}
