// Package directory queries the secondary symbol-directory provider for
// instrument listings.
//
// The provider serves a different exchange naming scheme and a different
// instrument-type taxonomy than the connectors; the tables in types.go carry
// the routing and type-remapping knowledge. Symbol-directory lookups are a
// separate path from ticker polling: the same symbol reached through both
// paths shares no cache or state.
package directory
