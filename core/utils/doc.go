// Package utils provides loose type conversion helpers.
// Site agents encode flags and numbers inconsistently (true, 1, "1", "true"),
// and these helpers normalize them at the request boundary.
package utils
