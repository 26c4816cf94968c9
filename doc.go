// Package ledger is a portfolio accounting and reporting engine built around
// an append-only transaction log.
//
// Every cash movement of a portfolio is one immutable Transaction (deposit,
// withdrawal, buy, sell, dividend, cash settlement, tax). The Ledger derives
// all state from the log: the cash balance is a pure fold over it, positions
// are opened and closed by the BUY and SELL entries that reference them, and
// a ledger can always be rebuilt from its recorded transactions alone.
//
// On top of the log sit a Market of daily price bars, a Broker that executes
// trade intents and processes dividends, splits and year-end taxes against
// historical US schedules, and a reporting layer that values a portfolio
// (equity, realized and unrealized P&L, CAGR) from the log and a set of
// quotes.
//
// All amounts are exact decimals in US dollars.
package ledger
