// Package item derives a canonical item identity from a decoded listing tag
// tree.
//
// Extraction never fails: missing or ill-typed sub-tags fall back to the
// zero value of the field they feed. Identifier rules for books, runes,
// pets and a few fixed items are applied before the general case, and the
// rename tables for enchant codes and reforged names are embedded JSON.
package item
