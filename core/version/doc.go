// Package version orders module version strings.
//
// Site agents report versions in several ecosystem schemes: plain semantic versions,
// core-prefixed contrib versions ("8.x-1.2"), wildcard development branches ("1.x-dev")
// and pre-releases ("2.0.0-beta3", "3.1-rc.1"). Parse normalizes them into a tuple of
// (core, major, minor, patch, qualifier rank, qualifier number) with
// dev < alpha < beta < rc < stable. Strings that do not fit fall back to
// lexicographic comparison, so Compare never fails.
package version
