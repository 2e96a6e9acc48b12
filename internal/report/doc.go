// Package report renders a snapshot as plain text tables for the headless
// scan command. Counts are formatted with go-humanize and tables with
// go-pretty.
package report
