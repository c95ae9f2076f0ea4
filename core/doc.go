// Package core implements the low-level PDF machinery this module needs:
// the object model, a tokenizer and object parser, cross-reference loading
// (classic tables, xref streams and object streams), stream filter decoding,
// and an incremental-update writer used to append annotation objects to an
// existing document without disturbing its original bytes.
package core
