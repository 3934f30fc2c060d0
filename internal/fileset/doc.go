// Package fileset discovers the files of file groups.
//
// File groups are declared with a root directory and a list of glob
// patterns. Many groups usually share nested roots (a project root, its src
// directory, src/css, ...), and walking each of them separately would read
// the same directories several times. Roots coalesces the declared roots so
// that every maximal covering directory is walked exactly once; each group
// keeps a relative prefix below the root it was attached to, and its Matcher
// applies that prefix to its patterns. Walk then performs the single pass
// and sorts every regular file into the groups it matches.
package fileset
