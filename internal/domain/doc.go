// Package domain models GDELT daily trend report data.
//
// # Data Source
//
// The GDELT Project publishes a daily trend report: a generated document
// summarizing the previous day's geopolitical event activity. Reports are
// keyed by calendar date and retrieved as plain text from
// <base-url>/<YYYYMMDD>.txt. Reports are immutable once published; the
// retention window starts at the GDELT v2 epoch (2015-02-19).
//
// # Report Layout Conventions
//
// The document is semi-structured: narrative paragraphs surround one or more
// tabular regions of event rows. A tabular region begins with a header line
// naming at least the Location and Tone columns, e.g.
//
//	Location                      Event          Tone    Mentions
//	--------------------------------------------------------------
//	Paris, France                 Protest         3.2         120
//	Khartoum, Sudan               Unrest         -5.0          44
//
// Columns are separated by tabs or runs of two or more spaces. Reports are
// paginated for print: form feeds, "Page N of M" lines, and repeated column
// headers may appear anywhere inside a region and carry no data.
//
// Row fields:
//
//	Location  free-text place name as printed, never empty in a valid row
//	Event     category label from a small open set (Protest, Unrest, ...)
//	Tone      signed decimal sentiment score, typically within [-10, 10]
//	Mentions  non-negative integer source-mention count; optional
//
// Rows whose Tone fails numeric coercion, or whose Location or Event field
// is missing, are dropped individually; a report yielding zero valid rows is
// treated as malformed rather than empty.
//
// # Resolution and Output
//
// Location strings are resolved to WGS-84 coordinates by a Resolver. Names
// that cannot be resolved are expected operational outcomes, not errors:
// the event is excluded from the output collection and counted. Resolution
// is deterministic for a given resolver configuration within one run.
package domain
