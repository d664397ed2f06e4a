// Package discovery advertises and finds tag bridges with mDNS/DNS-SD.
//
// A running bridge registers one _tagbridge._tcp service whose port is
// the northbound HTTP port. The instance name defaults to the host name.
//
// # TXT Records
//
//   - ver: bridge version
//   - ns: namespace index of the exposed nodes
//   - folder: comma-separated folder names
//   - tags: number of exposed nodes
package discovery
