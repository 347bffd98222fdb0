package admin

import "errors"

var ErrLedgerNotFound = errors.New("ledger not found")
