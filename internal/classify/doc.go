// Package classify recognizes which of the known advertising exports a
// file contains, independent of its file name.
//
// Classification runs in two stages. The first inspects only the first
// column header, which in every export names the report's primary
// dimension ("Search term", "Device", "Campaign"). When that is not
// conclusive, every header is scored against weighted keyword signatures
// and the best type wins if its score reaches MinSignatureScore.
package classify
