// Package normalize maps raw vendor payloads into canonical records.
//
// All functions are pure and stateless. They tolerate missing optional
// fields (absent stays absent, never zero), coerce native epoch-seconds,
// epoch-millis and RFC 3339 timestamps to UTC with millisecond precision,
// and fold trade sides case-insensitively into {buy, sell}. An unrecognized
// side or a missing required field is a normalization error, not a default.
package normalize
