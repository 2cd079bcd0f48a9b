// Package nbt decodes and encodes the named binary tag format carried in
// auction listings.
//
// Only the subset needed for item metadata is supported: an unnamed-root
// compound in big-endian byte order. Item bytes arrive gzip-compressed and
// base64-encoded; DecodeItemBytes handles both layers.
package nbt
