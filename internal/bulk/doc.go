// Package bulk creates many tasks at once from a CSV file.
//
// # Input
//
// [ReadCSV] expects a header row and matches columns by name, case-insensitively:
//   - Title (required)
//   - Description (optional)
//   - Completed (optional, parsed with strconv.ParseBool)
//
// Other columns are ignored, so a file written by formatter.ExportToCSV can be imported as is.
//
// # Concurrency
//
// [Import] feeds rows through a fixed pool of workers. A shared [rate.Limiter] throttles calls to the
// service across all workers. Rows that fail validation are reported without a network call.
//
// # Progress
//
// Updates are sent on an optional channel without blocking; a full channel drops the update.
// Results are returned in input order regardless of completion order.
package bulk
