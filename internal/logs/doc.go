// Package logs reads the filingsync log file for the CLI.
//
// Tail returns the last matching lines together with the end offset, and
// Follow polls from that offset for lines appended later. Matchers select the
// lines of one sync run or one entity in either the console or JSON format.
package logs
