// Package postgres provides PostgreSQL-backed implementations of the
// persistence interfaces, including the taxonomy repository with its
// closure-table hierarchy queries, plus error mapping from PostgreSQL
// error codes to store errors.
package postgres
