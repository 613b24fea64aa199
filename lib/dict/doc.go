// Package dict holds the process wide lookup tables of the store: the
// KeyDictionary that maps key names to compact integer ids and the
// StringPool used by decoders to intern repeated string values.
package dict
