// Package validation wraps go-playground/validator with a shared instance that
// reports failures by JSON field path.
package validation
