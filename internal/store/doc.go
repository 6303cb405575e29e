// Package store provides persistent storage for logon-gateway using SQLite.
//
// # Architecture
//
// The store package uses small interfaces that SQLiteStore implements in a
// single struct:
//
//   - UserStore: local user records created or refreshed on login
//   - SessionStore: key/value data of gateway sessions with expiry
//   - AuditStore: append-only log of provisioning and maintenance actions
//
// # Users
//
// EnsureUser is the provisioning hook of the multisite logon module. An
// existing user gets last_login refreshed; a missing one is created with the
// configured role when auto-creation is enabled, otherwise ErrUserNotFound is
// returned and the request stays unauthenticated. Creation is recorded in the
// audit log.
//
// # Sessions
//
// Values live in session_values keyed by (session_id, key). Every write
// extends the expiry of the whole session. Expired rows are invisible to
// reads and removed by DeleteExpiredSessions.
//
// # Migrations
//
// Tables are created with CREATE TABLE IF NOT EXISTS. Columns added later are
// applied by runMigrations after checking pragma_table_info.
//
// # Thread Safety
//
// File databases run in WAL mode with a busy timeout so concurrent requests
// can provision users safely. In-memory databases use a single connection.
package store
