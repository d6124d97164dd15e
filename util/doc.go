// Package util provides small generic helpers: pointer construction,
// first-non-zero selection and rune-safe truncation.
package util
