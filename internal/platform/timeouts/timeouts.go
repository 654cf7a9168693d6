// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// SocketWrite caps one WebSocket frame write to a player.
const SocketWrite = 10 * time.Second

// StoreWrite caps one snapshot write after an event.
const StoreWrite = 5 * time.Second

// StoreRead caps snapshot loads and spy DM queries.
const StoreRead = 5 * time.Second

// AdminRequest caps one admin API call made by gamectl.
const AdminRequest = 10 * time.Second
