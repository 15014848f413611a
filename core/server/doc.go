// Package server holds the HTTP server configuration and its supervised runner.
//
// The Config struct defines the HTTP port, the admin API key, the request body
// limit and the graceful shutdown timeout. HTTPService adapts a fiber application
// to the suture.Service contract so the API can run next to the background worker
// under one supervisor.
package server
