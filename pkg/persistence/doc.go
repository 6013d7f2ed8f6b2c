// Package persistence stores a fixed-size record on a raw byte-addressable
// storage device such as an EEPROM, or a file emulating one.
//
// # Image Layout
//
// A record occupies binary.Size(record)+4 bytes starting at the store's
// offset: the little-endian byte image of the record followed by a 4-byte
// little-endian CRC-32 (IEEE) over that image. This matches the layout the
// firmware's ConfigManager writes, so existing EEPROM dumps load unchanged.
//
// # Load Semantics
//
// Load never fails because of bad content. A checksum mismatch (corruption,
// erased flash, first boot) writes the caller's in-memory record back as the
// new image and reports loaded=false. Only device I/O errors are returned.
package persistence
