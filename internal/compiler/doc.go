// Package compiler turns declarative CUE thorn definitions into ir records.
//
// The compiler only materializes records: it validates names, phases, and
// parameter types, assigns stable declaration indexes, and leaves every
// ordering decision to the schedule package.
package compiler
