// Package ratelimit limits inventory submissions per site.
//
// The limiter uses fixed windows aligned to the window length (by default four
// submissions per clock hour). Each check is a single atomic increment against the
// shared kvstore, so concurrent requests from one site can never all slip through.
package ratelimit
