// Package textutil turns free-form respondent and sentence text into names
// that are safe to use on a filesystem.
//
// Names are folded to ASCII first (diacritics stripped) so that "Dédé" and
// "Dede" land in the same upload folder.
package textutil
