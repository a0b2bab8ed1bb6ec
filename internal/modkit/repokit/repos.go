// Package repokit holds the seams repositories are written against
package repokit

import "agentpulse/internal/platform/store"

// Queryer is the read and write surface a bound repo runs on; it is either the
// pool or the transaction handed to a Tx callback
type Queryer = store.RowQuerier

// TxRunner is a Queryer that can also open transactions
type TxRunner = store.TxRunner
