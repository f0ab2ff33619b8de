// Package utils provides small conversion helpers shared by the record
// decoders and HTTP handlers: normalizing loosely typed identifiers (numbers
// or strings) into canonical strings and positive integer ids.
package utils
