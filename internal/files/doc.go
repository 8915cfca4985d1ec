// Package files discovers dataset files in the data directory and resolves
// dataset names against it without letting a name escape the directory.
package files
