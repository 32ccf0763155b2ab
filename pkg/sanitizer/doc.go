// Package sanitizer normalizes user input before validation and storage.
//
// All functions are idempotent. Invalid input is returned in a form the validators
// will reject rather than as an error.
//
// Normalization includes:
//   - Phone numbers: E.164, with Thailand as the default region for national numbers
//   - URLs: scheme added when missing, host lowercased, tracking parameters dropped
//   - Strings: whitespace collapsed and trimmed
//   - Emails: trimmed and lowercased
//   - Object IDs: trimmed and lowercased, order kept
package sanitizer
