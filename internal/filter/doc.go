// Package filter defines the structured filter variants and the envelope that
// combines them.
//
// An Envelope holds at most one Filter per field. Fields combine by
// intersection; committing a new Filter for a field already present replaces
// that field's prior Filter. Filters are values: an Envelope handed outside
// the filter store is always a clone, so no observer can see a
// partially-applied mutation.
package filter
