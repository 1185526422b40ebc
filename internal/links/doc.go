// Package links holds the link-directory domain: the typed shape of upstream
// database rows, the normalized LinkEntry/Index types, and the interfaces the
// rest of the service is wired against.
//
// Pipeline overview:
//   - A Fetcher pulls every visible Record from the upstream database.
//   - Normalize turns those records into an Index grouped by tag and ordered
//     by each entry's number, and reports every URL it saw so the selection
//     gate can grow.
//   - The state package keeps the latest Index plus the selection; the api
//     package serves both over HTTP.
package links
