// Package repositories implements SQLite persistence for client-local state.
//
// [LocalStorage] is the only repository: a string key/value table that outlives the process,
// used by the session store to keep the access token between runs.
package repositories
