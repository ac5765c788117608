package postgres

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// maxBigint tope para agregados que suman varios ítems (numeric → bigint).
const maxBigint = "9223372036854775807"

const (
	codeInvalidText         = "22P02"
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == codeUniqueViolation
}

// isForeignKeyViolation verifica si un error es una violación de llave foránea (23503).
func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == codeForeignKeyViolation
}

// isCheckViolation verifica si un error es una violación de CHECK (23514).
func isCheckViolation(err error) bool {
	return pgErrorCode(err) == codeCheckViolation
}

// isInvalidText verifica si Postgres rechazó un literal mal formado (22P02).
func isInvalidText(err error) bool {
	return pgErrorCode(err) == codeInvalidText
}

// validID evita enviar a la columna UUID valores que Postgres rechazaría con 22P02.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// escapeLike escapa los comodines de LIKE para buscar la subcadena literal.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
