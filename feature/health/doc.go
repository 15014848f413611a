// Package health exposes GET /health for liveness and GET /health/ready,
// which fails with 503 until the database answers, the pipeline tables carry
// every required column and the shared store responds.
package health
