// Package report renders an analysis of the results table as files that
// outlive the process.
//
// Renderers:
//   - HTMLRenderer: self-contained page with sortable tables
//   - CSVRenderer: every trial as one row, for spreadsheets and scripts
package report
