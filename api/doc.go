// Package api provides the HTTP surface of the match server.
//
// The package exposes:
//   - /ws, the WebSocket endpoint every game client connects to
//   - GET /api/health, a liveness probe
//   - GET /api/rules, the active rule set
//   - GET /api/stats, connection, lobby, and session counts
//   - GET /api/lobby, the open lobby entries
//   - GET /api/sessions and /api/sessions/{id}, the live match sessions
//
// The REST routes are read-only. Creating, joining, and playing matches all
// happens over the WebSocket channel; these endpoints exist for dashboards
// and debugging.
package api
